package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	settings "github.com/goliatone/go-settings"
)

// DefaultSite names the configuration scope used when none is configured.
const DefaultSite = "default"

var ErrInvalidRef = errors.New("state: invalid ref")

// Ref identifies one stored setting of one site.
type Ref struct {
	Site string
	Name string
}

// Identifier renders the ref as "site:name".
func (r Ref) Identifier() (string, error) {
	site := strings.TrimSpace(r.Site)
	name := strings.TrimSpace(r.Name)
	switch {
	case site == "":
		return "", fmt.Errorf("%w: site is required", ErrInvalidRef)
	case name == "":
		return "", fmt.Errorf("%w: name is required", ErrInvalidRef)
	case strings.Contains(site, ":"):
		return "", fmt.Errorf("%w: site %q must not contain ':'", ErrInvalidRef, site)
	}
	return site + ":" + name, nil
}

// ParseIdentifier parses a value produced by Ref.Identifier.
func ParseIdentifier(id string) (Ref, error) {
	site, name, ok := strings.Cut(id, ":")
	if !ok || site == "" || name == "" {
		return Ref{}, fmt.Errorf("%w: %q is not a site:name identifier", ErrInvalidRef, id)
	}
	return Ref{Site: site, Name: name}, nil
}

// RowStore is the table level contract behind DurableProvider. A store
// serves a single site; All returns rows ordered by name.
type RowStore interface {
	TableExists(ctx context.Context) (bool, error)
	All(ctx context.Context) ([]settings.Row, error)
	Find(ctx context.Context, name string) (settings.Row, bool, error)
	Upsert(ctx context.Context, row settings.Row) error
	Delete(ctx context.Context, name string) error
}
