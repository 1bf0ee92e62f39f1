package settings

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened setting descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format.
type SchemaDocument struct {
	Format     SchemaFormat
	Document   any
	Locale     string
	Categories []string
}

// SchemaGenerator transforms setting listings into a schema document.
// Implementations must not mutate the input.
type SchemaGenerator interface {
	Generate(settings []SettingInfo) (SchemaDocument, error)
}

// FieldDescriptor describes a setting and its wire type.
type FieldDescriptor struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Type     string `json:"type"`
	Derived  bool   `json:"derived,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(settings []SettingInfo) (SchemaDocument, error) {
	descriptors := make([]FieldDescriptor, 0, len(settings))
	for _, info := range settings {
		descriptors = append(descriptors, FieldDescriptor{
			Name:     info.Name,
			Category: info.Category,
			Type:     info.Descriptor.Type,
			Derived:  info.Derived,
			Hidden:   info.Hidden,
		})
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// WithSchemaGenerator configures the generator used by Engine.Schema.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *engineConfig) {
		cfg.schemaGenerator = generator
	}
}

// Schema describes the visible settings with the configured generator, or
// the descriptor generator when none is set.
func (e *Engine) Schema() (SchemaDocument, error) {
	generator := e.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	doc, err := generator.Generate(e.AllSettings(false))
	if err != nil {
		return SchemaDocument{}, err
	}
	doc.Locale = e.SiteLocale()
	doc.Categories = e.Categories()
	return doc, nil
}
