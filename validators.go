package settings

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validator checks the normalized string form of a candidate value.
// Failures are returned as *InvalidParameterError.
type Validator interface {
	Validate(value string) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(value string) error

// Validate implements Validator.
func (f ValidatorFunc) Validate(value string) error {
	if f == nil {
		return nil
	}
	return f(value)
}

// ValidatorOptions configure a validator binding.
type ValidatorOptions struct {
	Setting    string
	Type       DataType
	Min        *int
	Max        *int
	Regex      string
	RegexError string
	AllowEmpty *bool
	Hidden     bool
	Rule       string
}

// ValidatorFactory builds a validator for one setting.
type ValidatorFactory func(opts ValidatorOptions) (Validator, error)

// Built in validator identifiers.
const (
	ValidatorInteger  = "integer"
	ValidatorString   = "string"
	ValidatorRegex    = "regex"
	ValidatorEmail    = "email"
	ValidatorUsername = "username"
	ValidatorHostList = "host_list"
	ValidatorExpr     = "expr"
)

// Integer settings are bounded to this range unless declared otherwise or
// hidden.
const (
	DefaultIntegerMin = 0
	DefaultIntegerMax = 2_000_000_000
)

func defaultValidatorFor(t DataType) string {
	switch t {
	case TypeInteger:
		return ValidatorInteger
	case TypeString, TypeList, TypeEnum:
		return ValidatorString
	case TypeRegex:
		return ValidatorRegex
	case TypeEmail:
		return ValidatorEmail
	case TypeUsername:
		return ValidatorUsername
	case TypeHostList:
		return ValidatorHostList
	}
	return ""
}

func builtinValidators(lookup UserLookup) map[string]ValidatorFactory {
	return map[string]ValidatorFactory{
		ValidatorInteger:  newIntegerValidator,
		ValidatorString:   newStringValidator,
		ValidatorRegex:    newRegexValidator,
		ValidatorEmail:    newEmailValidator,
		ValidatorHostList: newHostListValidator,
		ValidatorUsername: func(opts ValidatorOptions) (Validator, error) {
			return usernameValidator{setting: opts.Setting, lookup: lookup}, nil
		},
	}
}

type integerValidator struct {
	setting  string
	min, max *int
}

func newIntegerValidator(opts ValidatorOptions) (Validator, error) {
	v := integerValidator{setting: opts.Setting, min: opts.Min, max: opts.Max}
	if !opts.Hidden {
		if v.min == nil {
			lo := DefaultIntegerMin
			v.min = &lo
		}
		if v.max == nil {
			hi := DefaultIntegerMax
			v.max = &hi
		}
	}
	return v, nil
}

func (v integerValidator) Validate(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err == nil && (v.min == nil || n >= *v.min) && (v.max == nil || n <= *v.max) {
		return nil
	}
	switch {
	case v.min != nil && v.max != nil:
		return &InvalidParameterError{Setting: v.setting, Key: KeyIntegerMinMax,
			Params:  map[string]any{"min": *v.min, "max": *v.max},
			Message: fmt.Sprintf("must be an integer between %d and %d", *v.min, *v.max)}
	case v.min != nil:
		return &InvalidParameterError{Setting: v.setting, Key: KeyIntegerMin,
			Params:  map[string]any{"min": *v.min},
			Message: fmt.Sprintf("must be an integer of at least %d", *v.min)}
	case v.max != nil:
		return &InvalidParameterError{Setting: v.setting, Key: KeyIntegerMax,
			Params:  map[string]any{"max": *v.max},
			Message: fmt.Sprintf("must be an integer of at most %d", *v.max)}
	}
	return invalidParameter(v.setting, KeyInvalidInteger, "must be an integer")
}

type stringValidator struct {
	setting    string
	min, max   *int
	pattern    *regexp.Regexp
	regexError string
	allowEmpty bool
}

func newStringValidator(opts ValidatorOptions) (Validator, error) {
	v := stringValidator{
		setting:    opts.Setting,
		min:        opts.Min,
		max:        opts.Max,
		regexError: opts.RegexError,
		allowEmpty: opts.AllowEmpty == nil || *opts.AllowEmpty,
	}
	if opts.Regex != "" {
		pattern, err := regexp.Compile(opts.Regex)
		if err != nil {
			return nil, &ConfigurationError{Setting: opts.Setting, Reason: "invalid regex", Err: err}
		}
		v.pattern = pattern
	}
	if v.regexError == "" {
		v.regexError = KeyRegexMismatch
	}
	return v, nil
}

func (v stringValidator) Validate(value string) error {
	if value == "" {
		if v.allowEmpty {
			return nil
		}
		return invalidParameter(v.setting, KeyBlankNotAllowed, "must not be blank")
	}
	length := utf8.RuneCountInString(value)
	if (v.min != nil && length < *v.min) || (v.max != nil && length > *v.max) {
		switch {
		case v.min != nil && v.max != nil:
			return &InvalidParameterError{Setting: v.setting, Key: KeyStringMinMax,
				Params:  map[string]any{"min": *v.min, "max": *v.max},
				Message: fmt.Sprintf("must be between %d and %d characters", *v.min, *v.max)}
		case v.min != nil:
			return &InvalidParameterError{Setting: v.setting, Key: KeyStringMin,
				Params:  map[string]any{"min": *v.min},
				Message: fmt.Sprintf("must be at least %d characters", *v.min)}
		default:
			return &InvalidParameterError{Setting: v.setting, Key: KeyStringMax,
				Params:  map[string]any{"max": *v.max},
				Message: fmt.Sprintf("must be at most %d characters", *v.max)}
		}
	}
	if v.pattern != nil && !v.pattern.MatchString(value) {
		return invalidParameter(v.setting, v.regexError, "does not match %s", v.pattern.String())
	}
	return nil
}

func newRegexValidator(opts ValidatorOptions) (Validator, error) {
	setting := opts.Setting
	return ValidatorFunc(func(value string) error {
		if value == "" {
			return nil
		}
		if _, err := regexp.Compile(value); err != nil {
			return &InvalidParameterError{Setting: setting, Key: KeyInvalidRegex, Err: err}
		}
		return nil
	}), nil
}

func newEmailValidator(opts ValidatorOptions) (Validator, error) {
	setting := opts.Setting
	return ValidatorFunc(func(value string) error {
		if value == "" {
			return nil
		}
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return invalidParameter(setting, KeyInvalidEmail, "%q is not an email address", value)
		}
		return nil
	}), nil
}

// UserLookup reports whether a username exists.
type UserLookup func(username string) bool

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_][\p{L}\p{N}_.\-]{1,59}$`)

type usernameValidator struct {
	setting string
	lookup  UserLookup
}

func (v usernameValidator) Validate(value string) error {
	if value == "" {
		return nil
	}
	if !usernamePattern.MatchString(value) {
		return invalidParameter(v.setting, KeyInvalidUsername, "%q is not a valid username", value)
	}
	if v.lookup != nil && !v.lookup(value) {
		return invalidParameter(v.setting, KeyUnknownUsername, "user %q does not exist", value)
	}
	return nil
}

func newHostListValidator(opts ValidatorOptions) (Validator, error) {
	setting := opts.Setting
	return ValidatorFunc(func(value string) error {
		for _, host := range splitList(value) {
			if strings.ContainsAny(host, "*?") {
				return &InvalidParameterError{Setting: setting, Key: KeyInvalidHostWildcard,
					Params:  map[string]any{"value": host},
					Values:  []string{host},
					Message: fmt.Sprintf("%q must not contain wildcards", host)}
			}
		}
		return nil
	}), nil
}
