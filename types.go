package settings

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// DataType identifies how a setting value is coerced and validated. The
// ordinals are persisted alongside every stored value and must never be
// renumbered.
type DataType int

const (
	TypeString DataType = iota + 1
	TypeTime
	TypeInteger
	TypeFloat
	TypeBool
	TypeNull
	TypeEnum
	TypeList
	TypeURLList
	TypeHostList
	TypeCategoryList
	TypeValueList
	TypeRegex
	TypeEmail
	TypeUsername
	TypeCategory
)

var dataTypeNames = map[DataType]string{
	TypeString:       "string",
	TypeTime:         "time",
	TypeInteger:      "integer",
	TypeFloat:        "float",
	TypeBool:         "bool",
	TypeNull:         "null",
	TypeEnum:         "enum",
	TypeList:         "list",
	TypeURLList:      "url_list",
	TypeHostList:     "host_list",
	TypeCategoryList: "category_list",
	TypeValueList:    "value_list",
	TypeRegex:        "regex",
	TypeEmail:        "email",
	TypeUsername:     "username",
	TypeCategory:     "category",
}

// DataTypes returns every known type in ordinal order.
func DataTypes() []DataType {
	out := make([]DataType, 0, len(dataTypeNames))
	for t := TypeString; t <= TypeCategory; t++ {
		out = append(out, t)
	}
	return out
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Valid reports whether t is a known type.
func (t DataType) Valid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// IsList reports whether values of t are "|" separated collections.
func (t DataType) IsList() bool {
	switch t {
	case TypeList, TypeURLList, TypeHostList, TypeCategoryList, TypeValueList:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("settings: unknown data type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDataType resolves a type by name.
func ParseDataType(name string) (DataType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for t, n := range dataTypeNames {
		if n == key {
			return t, nil
		}
	}
	return 0, &ConfigurationError{Reason: fmt.Sprintf("unknown data type %q", name)}
}

// InferDataType derives a type from the native kind of value.
func InferDataType(value any) (DataType, error) {
	if value == nil {
		return TypeNull, nil
	}
	switch value.(type) {
	case []string:
		return TypeList, nil
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.String:
		return TypeString, nil
	case reflect.Bool:
		return TypeBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger, nil
	case reflect.Float32, reflect.Float64:
		return TypeFloat, nil
	}
	return 0, &InvalidParameterError{
		Key:     KeyUnsupportedValue,
		Message: fmt.Sprintf("unsupported value of type %T", value),
	}
}

// Row is a persisted override. Value is always the normalized string form.
type Row struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	DataType DataType `json:"data_type"`
}

// Provider stores overrides for the active configuration scope.
//
// Implementations that lose their backing store must degrade rather than
// fail: All returns no rows, Find reports not found and Save and Destroy do
// nothing.
type Provider interface {
	All(ctx context.Context) ([]Row, error)
	Find(ctx context.Context, name string) (Row, bool, error)
	Save(ctx context.Context, name, value string, dataType DataType) error
	Destroy(ctx context.Context, name string) error
	CurrentSite() string
}

// Reader resolves the current value of a setting.
type Reader interface {
	Value(name string) (any, bool)
}

type snapshotReader map[string]any

func (s snapshotReader) Value(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Definition is the registration record for one setting.
type Definition struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	// Default is the base locale default. Scalars and []string are accepted.
	Default any `json:"default"`
	// LocaleDefault overrides Default for specific locales.
	LocaleDefault map[string]any `json:"locale_default,omitempty"`

	Type     DataType `json:"type,omitempty"`
	Enum     Enum     `json:"-"`
	EnumName string   `json:"enum,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	// AllowAny defaults to true for TypeList.
	AllowAny *bool `json:"allow_any,omitempty"`

	Validator        string `json:"validator,omitempty"`
	DisableValidator bool   `json:"disable_validator,omitempty"`
	Min              *int   `json:"min,omitempty"`
	Max              *int   `json:"max,omitempty"`
	Regex            string `json:"regex,omitempty"`
	RegexError       string `json:"regex_error,omitempty"`
	AllowEmpty       *bool  `json:"allow_empty,omitempty"`
	// Rule is an expression that must evaluate to true for a write to pass.
	Rule string `json:"rule,omitempty"`

	Hidden bool `json:"hidden,omitempty"`
}

func (d Definition) validate() error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return &ConfigurationError{Reason: "setting name must not be empty"}
	}
	if name == LocaleSettingName {
		return &ConfigurationError{Setting: name, Reason: "name is reserved for the site locale"}
	}
	if isMapValue(d.Default) {
		return &ConfigurationError{Setting: name, Reason: "default must not be a map, use locale_default"}
	}
	if d.Default != nil {
		if _, err := InferDataType(d.Default); err != nil {
			return &ConfigurationError{Setting: name, Reason: "unsupported default value", Err: err}
		}
	}
	for loc, value := range d.LocaleDefault {
		if isMapValue(value) {
			return &ConfigurationError{Setting: name, Reason: fmt.Sprintf("locale default for %q must not be a map", loc)}
		}
	}
	if d.Type != 0 && !d.Type.Valid() {
		return &ConfigurationError{Setting: name, Reason: fmt.Sprintf("unknown data type %d", int(d.Type))}
	}
	if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
		return &ConfigurationError{Setting: name, Reason: "min must not exceed max"}
	}
	return nil
}

func isMapValue(value any) bool {
	if value == nil {
		return false
	}
	return reflect.TypeOf(value).Kind() == reflect.Map
}

// TypeDescriptor describes a setting type for choice widgets.
type TypeDescriptor struct {
	Type           string      `json:"type"`
	ValidValues    []EnumValue `json:"valid_values,omitempty"`
	TranslateNames bool        `json:"translate_names,omitempty"`
	AllowAny       *bool       `json:"allow_any,omitempty"`
	Choices        []string    `json:"choices,omitempty"`
	Min            *int        `json:"min,omitempty"`
	Max            *int        `json:"max,omitempty"`
	Regex          string      `json:"regex,omitempty"`
}

// SettingInfo is the listing view of one setting.
type SettingInfo struct {
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Description string         `json:"description,omitempty"`
	Value       any            `json:"value"`
	Default     any            `json:"default"`
	Overridden  bool           `json:"overridden"`
	Derived     bool           `json:"derived,omitempty"`
	Hidden      bool           `json:"hidden,omitempty"`
	Descriptor  TypeDescriptor `json:"type"`
}
