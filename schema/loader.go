package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/hydrate"
)

// Entry is one setting declared in a schema file.
type Entry struct {
	Definition settings.Definition
	DependsOn  []string
	Expression string
}

// Derived reports whether the entry declares a derived setting.
func (e Entry) Derived() bool { return e.Expression != "" }

// Document is a parsed schema in declaration order.
type Document struct {
	Path    string
	Entries []Entry
}

type entryOptions struct {
	settings.Definition
	DependsOn  []string `json:"depends_on,omitempty"`
	Expression string   `json:"expression,omitempty"`
}

var entryDecoder = hydrate.NewDecoder[entryOptions](
	hydrate.WithUseNumber[entryOptions](),
	hydrate.WithDisallowUnknownFields[entryOptions](),
	hydrate.WithPreHook[entryOptions](checkShape),
	hydrate.WithPostHook[entryOptions](normalizeEntry),
)

// LoadFile reads and parses the schema at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if doc != nil {
		doc.Path = path
	}
	return doc, err
}

// Parse decodes a schema document. Every malformed entry is reported; the
// returned document holds the entries that decoded cleanly.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &settings.ConfigurationError{Reason: "parse schema", Err: err}
	}
	doc := &Document{}
	if len(root.Content) == 0 {
		return doc, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &settings.ConfigurationError{Reason: "schema root must map categories to settings"}
	}

	var result *multierror.Error
	seen := map[string]string{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		category, body := top.Content[i].Value, top.Content[i+1]
		if body.Kind != yaml.MappingNode {
			result = multierror.Append(result, &settings.ConfigurationError{
				Reason: fmt.Sprintf("category %q must map setting names to options (line %d)", category, body.Line),
			})
			continue
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			name := body.Content[j].Value
			if previous, dup := seen[name]; dup {
				result = multierror.Append(result, &settings.ConfigurationError{
					Setting: name,
					Reason:  fmt.Sprintf("declared in %q and %q", previous, category),
				})
				continue
			}
			seen[name] = category
			entry, err := parseEntry(category, name, body.Content[j+1])
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			doc.Entries = append(doc.Entries, entry)
		}
	}
	return doc, result.ErrorOrNil()
}

func parseEntry(category, name string, node *yaml.Node) (Entry, error) {
	payload := map[string]any{}
	if node.Kind == yaml.MappingNode {
		if err := node.Decode(&payload); err != nil {
			return Entry{}, &settings.ConfigurationError{Setting: name, Reason: "decode options", Err: err}
		}
	} else {
		var value any
		if err := node.Decode(&value); err != nil {
			return Entry{}, &settings.ConfigurationError{Setting: name, Reason: "decode default", Err: err}
		}
		payload["default"] = value
	}

	opts, err := entryDecoder.Decode(hydrate.Context{Category: category, Setting: name}, payload)
	if err != nil {
		return Entry{}, &settings.ConfigurationError{Setting: name, Reason: fmt.Sprintf("line %d", node.Line), Err: err}
	}
	def := opts.Definition
	def.Name = name
	def.Category = category
	return Entry{Definition: def, DependsOn: opts.DependsOn, Expression: opts.Expression}, nil
}

func checkShape(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	for _, key := range []string{"name", "category"} {
		if _, ok := payload[key]; ok {
			return nil, fmt.Errorf("%q is taken from the schema layout", key)
		}
	}
	value, hasDefault := payload["default"]
	_, derived := payload["expression"]
	switch {
	case derived && hasDefault:
		return nil, fmt.Errorf("derived settings take no default")
	case !derived && !hasDefault:
		return nil, fmt.Errorf("default is required")
	}
	if _, ok := value.(map[string]any); ok {
		return nil, fmt.Errorf("default must not be a map, use locale_default")
	}
	if _, ok := payload["hidden"].(map[string]any); ok {
		return nil, fmt.Errorf("hidden must be a boolean")
	}
	// "validator: false" turns the built-in type validator off.
	if enabled, ok := payload["validator"].(bool); ok {
		if enabled {
			return nil, fmt.Errorf("validator must name a validator or be false")
		}
		delete(payload, "validator")
		payload["disable_validator"] = true
	}
	return payload, nil
}

func normalizeEntry(_ hydrate.Context, opts *entryOptions) error {
	opts.Default = scalar(opts.Default)
	for loc, value := range opts.LocaleDefault {
		opts.LocaleDefault[loc] = scalar(value)
	}
	custom := opts.Validator != "" && opts.Validator != settings.ValidatorInteger && opts.Validator != settings.ValidatorString
	if custom && (opts.Min != nil || opts.Max != nil) {
		return fmt.Errorf("min and max cannot be combined with validator %q", opts.Validator)
	}
	return nil
}

// scalar converts decoded JSON values to the kinds a Definition accepts.
func scalar(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(scalar(item)))
		}
		return out
	}
	return value
}

// Definitions returns the stored (non-derived) definitions in order.
func (d *Document) Definitions() []settings.Definition {
	out := make([]settings.Definition, 0, len(d.Entries))
	for _, entry := range d.Entries {
		if !entry.Derived() {
			out = append(out, entry.Definition)
		}
	}
	return out
}

// Apply registers every entry with engine, stored settings first. Applying
// the same document again refreshes defaults and keeps overrides.
func (d *Document) Apply(engine *settings.Engine) error {
	var result *multierror.Error
	for _, def := range d.Definitions() {
		if err := engine.Register(def); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, entry := range d.Entries {
		if !entry.Derived() {
			continue
		}
		def := entry.Definition
		if err := engine.RegisterExpression(def.Name, def.Category, entry.DependsOn, entry.Expression); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
