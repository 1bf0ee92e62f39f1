package openapi

import (
	"testing"

	settings "github.com/goliatone/go-settings"
)

func TestSettingNodeTypes(t *testing.T) {
	cases := []struct {
		dataType string
		wantType string
		format   string
	}{
		{"integer", "integer", ""},
		{"float", "number", ""},
		{"bool", "boolean", ""},
		{"time", "string", "date-time"},
		{"email", "string", "email"},
		{"url_list", "array", ""},
		{"category_list", "array", ""},
		{"username", "string", ""},
		{"nonsense", "string", ""},
	}
	for _, tc := range cases {
		node := settingNode(settings.SettingInfo{Name: "x", Descriptor: settings.TypeDescriptor{Type: tc.dataType}})
		if node.Type != tc.wantType {
			t.Fatalf("%s: expected type %q, got %q", tc.dataType, tc.wantType, node.Type)
		}
		if node.Format != tc.format {
			t.Fatalf("%s: expected format %q, got %q", tc.dataType, tc.format, node.Format)
		}
	}
}

func TestSettingNodeNullable(t *testing.T) {
	node := settingNode(settings.SettingInfo{Name: "x", Descriptor: settings.TypeDescriptor{Type: "null"}})
	schema := node.inlineOpenAPI()
	if _, ok := schema["type"]; ok {
		t.Fatalf("expected no type for null setting, got %v", schema["type"])
	}
	if schema["nullable"] != true {
		t.Fatalf("expected nullable, got %v", schema["nullable"])
	}
}

func TestSettingNodeIntegerEnum(t *testing.T) {
	node := settingNode(settings.SettingInfo{
		Name: "trust_level",
		Descriptor: settings.TypeDescriptor{
			Type:        "enum",
			ValidValues: []settings.EnumValue{{Name: "new", Value: 0}, {Name: "basic", Value: 1}},
		},
	})
	if node.Type != "integer" {
		t.Fatalf("expected integer enum, got %q", node.Type)
	}
}

func TestComponentNames(t *testing.T) {
	cases := map[string]string{
		"posting":  "PostingSettings",
		"user_api": "UserApiSettings",
		"user-api": "UserApiSettings",
		"2fa":      "Category2faSettings",
		"":         "CategorySettings",
	}
	for in, want := range cases {
		if got := componentName(in); got != want {
			t.Fatalf("componentName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollidingCategoryNamesStayDistinct(t *testing.T) {
	infos := []settings.SettingInfo{
		{Name: "a", Category: "user_api", Descriptor: settings.TypeDescriptor{Type: "string"}},
		{Name: "b", Category: "user-api", Descriptor: settings.TypeDescriptor{Type: "string"}},
		{Name: "c", Descriptor: settings.TypeDescriptor{Type: "string"}},
	}
	doc, err := NewGenerator().Generate(infos)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	document := doc.Document.(map[string]any)
	schemas := document["components"].(map[string]any)["schemas"].(map[string]any)
	if len(schemas) != 3 {
		t.Fatalf("expected three components, got %v", schemas)
	}
	for _, name := range []string{"UserApiSettings", "UserApiSettings2", "UncategorizedSettings"} {
		if _, ok := schemas[name]; !ok {
			t.Fatalf("expected component %s, got %v", name, schemas)
		}
	}
	if len(requestProperties(t, doc)) != 3 {
		t.Fatalf("expected every setting to be reachable from the request body")
	}
}
