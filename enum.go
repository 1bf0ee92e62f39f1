package settings

import (
	"fmt"

	"github.com/goliatone/go-settings/pkg/locale"
)

// EnumValue is one member of an enumeration.
type EnumValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Enum is a closed value set bound to an enum typed setting.
type Enum interface {
	Values() []EnumValue
	// TranslateNames reports whether Name is a translation key rather than a
	// display label.
	TranslateNames() bool
}

// StaticEnum is a fixed Enum.
type StaticEnum struct {
	Items     []EnumValue
	Translate bool
}

// NewStaticEnum builds an enum whose names are the printed values.
func NewStaticEnum(values ...any) StaticEnum {
	items := make([]EnumValue, 0, len(values))
	for _, v := range values {
		items = append(items, EnumValue{Name: fmt.Sprint(v), Value: v})
	}
	return StaticEnum{Items: items}
}

// Values implements Enum.
func (e StaticEnum) Values() []EnumValue {
	out := make([]EnumValue, len(e.Items))
	copy(out, e.Items)
	return out
}

// TranslateNames implements Enum.
func (e StaticEnum) TranslateNames() bool { return e.Translate }

// EnumContains reports whether value, in its stored string form, is a member
// of e.
func EnumContains(e Enum, value string) bool {
	if e == nil {
		return false
	}
	for _, item := range e.Values() {
		if fmt.Sprint(item.Value) == value {
			return true
		}
	}
	return false
}

type localeEnum struct {
	set *locale.Set
}

// LocaleEnum exposes a locale set as an Enum labelled with native names.
func LocaleEnum(set *locale.Set) Enum {
	return localeEnum{set: set}
}

func (e localeEnum) Values() []EnumValue {
	ids := e.set.List()
	out := make([]EnumValue, 0, len(ids))
	for _, id := range ids {
		out = append(out, EnumValue{Name: locale.NativeName(id), Value: id})
	}
	return out
}

func (localeEnum) TranslateNames() bool { return false }
