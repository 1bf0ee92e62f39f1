package openapi

import (
	settings "github.com/goliatone/go-settings"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI-compatible schema generator. Settings
// are grouped into one component per category and the settings endpoints
// compose those components.
func NewGenerator(opts ...GeneratorOption) settings.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option returns a settings.Option that wires the OpenAPI schema generator
// into an Engine.
func Option(opts ...GeneratorOption) settings.Option {
	return settings.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(infos []settings.SettingInfo) (settings.SchemaDocument, error) {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	document, err := newDocumentBuilder(g.config, buildSettingsGraph(infos), names).build()
	if err != nil {
		return settings.SchemaDocument{}, err
	}
	return settings.SchemaDocument{
		Format:   settings.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}
