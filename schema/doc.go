// Package schema loads setting declarations from YAML files and keeps an
// engine in sync with them.
//
// A schema file maps categories to settings and settings to their options:
//
//	required:
//	  title:
//	    default: Forum
//	    locale_default:
//	      fr: Forum FR
//	    max: 80
//	  contact_email:
//	    default: ""
//	    type: email
//	posting:
//	  min_post_length: 20
//	  max_post_length:
//	    default: 32000
//	    rule: value >= min_post_length
//	  post_length_range:
//	    expression: max_post_length - min_post_length
//	    depends_on: [min_post_length, max_post_length]
//
// A scalar or list in place of the option map is the default. Entries with
// an expression are registered as derived settings.
package schema
