// Package locale answers whether a locale identifier is recognized.
//
// Identifiers are accepted in either BCP 47 form ("pt-BR") or the underscore
// form common in translation bundles ("pt_BR"); both compare equal.
package locale

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Base is the compiled-in locale every default must exist for.
const Base = "en"

// Validator reports whether an identifier is a recognized locale.
type Validator interface {
	Valid(id string) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(id string) bool

// Valid implements Validator.
func (f ValidatorFunc) Valid(id string) bool {
	if f == nil {
		return false
	}
	return f(id)
}

// Parse canonicalizes id into a language tag.
func Parse(id string) (language.Tag, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return language.Und, fmt.Errorf("locale: identifier must not be empty")
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("locale: parse %q: %w", id, err)
	}
	return tag, nil
}

// Canonical returns the BCP 47 form of id.
func Canonical(id string) (string, error) {
	tag, err := Parse(id)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// Parseable accepts any well formed BCP 47 identifier.
func Parseable() Validator {
	return ValidatorFunc(func(id string) bool {
		_, err := Parse(id)
		return err == nil
	})
}

// Set is an explicit list of recognized locales.
type Set struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewSet builds a Set from ids. Malformed identifiers are skipped.
func NewSet(ids ...string) *Set {
	s := &Set{ids: make(map[string]string, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add records id as recognized and reports whether it was well formed.
func (s *Set) Add(id string) bool {
	canonical, err := Canonical(id)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ids[canonical]; !exists {
		s.ids[canonical] = strings.TrimSpace(id)
	}
	return true
}

// Valid implements Validator.
func (s *Set) Valid(id string) bool {
	if s == nil {
		return false
	}
	canonical, err := Canonical(id)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[canonical]
	return ok
}

// List returns the identifiers as they were added, sorted.
func (s *Set) List() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NativeName returns the locale's self-name ("Français" for "fr"), falling
// back to id when no display data exists.
func NativeName(id string) string {
	tag, err := Parse(id)
	if err != nil {
		return id
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return id
}
