// Package validations holds rules that validate one setting against the
// current values of others.
//
// A rule is bound to the name of the setting being written. The engine calls
// it with the normalized candidate value after type checks and the bound
// validator have passed.
package validations

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reader resolves the current value of another setting.
type Reader interface {
	Value(name string) (any, bool)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(name string) (any, bool)

// Value implements Reader.
func (f ReaderFunc) Value(name string) (any, bool) {
	if f == nil {
		return nil, false
	}
	return f(name)
}

// MapReader reads values out of a fixed snapshot.
type MapReader map[string]any

// Value implements Reader.
func (m MapReader) Value(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Rule validates candidate for the setting it is bound to.
type Rule func(candidate string, read Reader) error

// Rules maps setting names to the rule invoked when that setting is written.
type Rules map[string]Rule

// Merge returns a copy of r with other layered on top.
func (r Rules) Merge(other Rules) Rules {
	out := make(Rules, len(r)+len(other))
	for name, rule := range r {
		out[name] = rule
	}
	for name, rule := range other {
		if rule == nil {
			delete(out, name)
			continue
		}
		out[name] = rule
	}
	return out
}

// Names returns the bound setting names, sorted.
func (r Rules) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrRejected marks every rejection produced by this package.
var ErrRejected = errors.New("validations: value rejected")

// Error is a localizable rejection. Key names the message and Params fills
// its placeholders.
type Error struct {
	Key     string
	Params  map[string]any
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Key
}

// Is reports whether target is ErrRejected.
func (e *Error) Is(target error) bool {
	return target == ErrRejected
}

// MessageKey returns the translation key.
func (e *Error) MessageKey() string { return e.Key }

// MessageParams returns the placeholder values for the translation key.
func (e *Error) MessageParams() map[string]any { return e.Params }

func reject(key string, params map[string]any, format string, args ...any) error {
	return &Error{Key: key, Params: params, Message: fmt.Sprintf(format, args...)}
}

// Standard returns the rules bound by default: upload and backup bucket
// separation and disjoint default category notification levels.
func Standard() Rules {
	return BucketReuse("s3_upload_bucket", "s3_backup_bucket").
		Merge(DisjointCategories(DefaultCategoryLevels...))
}

func stringValue(read Reader, name string) string {
	if read == nil {
		return ""
	}
	v, ok := read.Value(name)
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case []string:
		return strings.Join(typed, "|")
	default:
		return fmt.Sprint(typed)
	}
}
