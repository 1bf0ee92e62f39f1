package openapi

import (
	"strings"

	settings "github.com/goliatone/go-settings"
)

// buildSettingsGraph maps every setting to a property of its category
// component. The property schema describes what Engine.Set accepts.
func buildSettingsGraph(infos []settings.SettingInfo) *categoryComponents {
	components := newCategoryComponents()
	for _, info := range infos {
		components.add(info.Category, info.Name, settingNode(info))
	}
	return components
}

func settingNode(info settings.SettingInfo) *schemaNode {
	descriptor := info.Descriptor
	dataType, err := settings.ParseDataType(descriptor.Type)
	if err != nil {
		dataType = settings.TypeString
	}

	node := &schemaNode{Description: strings.TrimSpace(info.Description)}
	formgen := node.ensureFormgen()
	if info.Category != "" {
		formgen["category"] = info.Category
	}
	node.setExtension("type", dataType.String())

	switch {
	case dataType == settings.TypeEnum:
		node.Type = "string"
		for _, v := range descriptor.ValidValues {
			node.Enum = append(node.Enum, v.Value)
		}
		if isIntegerEnum(node.Enum) {
			node.Type = "integer"
		}
		formgen["widget"] = "select"
	case dataType.IsList():
		node.Type = "array"
		node.Items = &schemaNode{Type: "string"}
		for _, choice := range descriptor.Choices {
			node.Items.Enum = append(node.Items.Enum, choice)
		}
		formgen["widget"] = "list"
		if descriptor.AllowAny != nil {
			node.setExtension("allow-any", *descriptor.AllowAny)
		}
	case dataType == settings.TypeInteger:
		node.Type = "integer"
		node.Minimum = intBound(descriptor.Min)
		node.Maximum = intBound(descriptor.Max)
	case dataType == settings.TypeFloat:
		node.Type = "number"
	case dataType == settings.TypeBool:
		node.Type = "boolean"
		formgen["widget"] = "toggle"
	case dataType == settings.TypeTime:
		node.Type = "string"
		node.Format = "date-time"
	case dataType == settings.TypeEmail:
		node.Type = "string"
		node.Format = "email"
	case dataType == settings.TypeNull:
		node.additionalMapping = map[string]any{"nullable": true}
	default:
		node.Type = "string"
		node.MinLength = descriptor.Min
		node.MaxLength = descriptor.Max
		node.Pattern = descriptor.Regex
		if len(descriptor.Choices) > 0 && dataType == settings.TypeString {
			for _, choice := range descriptor.Choices {
				node.Enum = append(node.Enum, choice)
			}
		}
	}

	node.Default = schemaDefault(dataType, info.Default)
	if info.Derived {
		node.setExtension("derived", true)
		node.additionalMapping = mergeMapping(node.additionalMapping, "readOnly", true)
	}
	if info.Hidden {
		node.setExtension("hidden", true)
	}
	return node
}

func schemaDefault(t settings.DataType, value any) any {
	if value == nil {
		return nil
	}
	if t.IsList() {
		joined, ok := value.(string)
		if !ok {
			return value
		}
		if joined == "" {
			return []any{}
		}
		parts := strings.Split(joined, "|")
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return value
}

func intBound(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func isIntegerEnum(values []any) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		switch v.(type) {
		case int, int64, int32:
		default:
			return false
		}
	}
	return true
}

func mergeMapping(mapping map[string]any, key string, value any) map[string]any {
	if mapping == nil {
		mapping = map[string]any{}
	}
	mapping[key] = value
	return mapping
}
