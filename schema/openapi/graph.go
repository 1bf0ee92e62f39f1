package openapi

import (
	"sort"
)

// extensionPrefix namespaces the vendor extensions describing engine
// semantics that plain JSON schema cannot express.
const extensionPrefix = "x-settings-"

type schemaNode struct {
	Type              string
	Format            string
	Description       string
	Properties        map[string]*schemaNode
	Required          []string
	Items             *schemaNode
	Enum              []any
	Default           any
	Minimum           *float64
	Maximum           *float64
	MinLength         *int
	MaxLength         *int
	Pattern           string
	formgen           map[string]string
	extensions        map[string]any
	additionalMapping map[string]any
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Description != "" {
		result["description"] = n.Description
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if len(n.Enum) > 0 {
		result["enum"] = n.Enum
	}
	if n.Minimum != nil {
		result["minimum"] = *n.Minimum
	}
	if n.Maximum != nil {
		result["maximum"] = *n.Maximum
	}
	if n.MinLength != nil {
		result["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		result["maxLength"] = *n.MaxLength
	}
	if n.Pattern != "" {
		result["pattern"] = n.Pattern
	}
	return result
}

func (n *schemaNode) inlineOpenAPI() map[string]any {
	result := n.baseMap()

	if len(n.Properties) > 0 || n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		names := make([]string, 0, len(n.Properties))
		for name := range n.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		result["properties"] = props
	}

	if len(n.Required) > 0 {
		names := append([]string{}, n.Required...)
		sort.Strings(names)
		result["required"] = names
	}

	if n.Items != nil {
		result["items"] = n.Items.inlineOpenAPI()
	}

	if len(n.formgen) > 0 {
		result["x-formgen"] = orderedStringMap(n.formgen)
	}

	for key, value := range n.extensions {
		result[extensionPrefix+key] = value
	}

	if len(n.additionalMapping) > 0 {
		keys := make([]string, 0, len(n.additionalMapping))
		for key := range n.additionalMapping {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			result[key] = n.additionalMapping[key]
		}
	}

	return result
}

func (n *schemaNode) ensureFormgen() map[string]string {
	if n.formgen == nil {
		n.formgen = map[string]string{}
	}
	return n.formgen
}

func (n *schemaNode) setExtension(key string, value any) {
	if n.extensions == nil {
		n.extensions = map[string]any{}
	}
	n.extensions[key] = value
}

func orderedStringMap(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out[key] = values[key]
	}
	return out
}
