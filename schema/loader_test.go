package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/state"
)

func newEngine(t *testing.T) *settings.Engine {
	t.Helper()
	engine, err := settings.New(state.NewMemoryProvider())
	require.NoError(t, err)
	return engine
}

func TestLoadFileKeepsDeclarationOrder(t *testing.T) {
	doc, err := LoadFile(filepath.Join("testdata", "site_settings.yml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "site_settings.yml"), doc.Path)

	var names, categories []string
	for _, entry := range doc.Entries {
		names = append(names, entry.Definition.Name)
		categories = append(categories, entry.Definition.Category)
	}
	assert.Equal(t, []string{
		"title", "contact_email",
		"min_post_length", "max_post_length", "post_length_range", "top_menu",
		"session_secret", "allowed_iframes",
	}, names)
	assert.Equal(t, "required", categories[0])
	assert.Equal(t, "security", categories[len(categories)-1])

	title := doc.Entries[0].Definition
	assert.Equal(t, "Forum", title.Default)
	assert.Equal(t, "Name of the site", title.Description)
	assert.Equal(t, map[string]any{"fr": "Forum FR"}, title.LocaleDefault)
	require.NotNil(t, title.Max)
	assert.Equal(t, 80, *title.Max)

	assert.Equal(t, settings.TypeEmail, doc.Entries[1].Definition.Type)
	assert.Equal(t, 20, doc.Entries[2].Definition.Default)
	assert.Equal(t, []string{"latest", "new", "top"}, doc.Entries[5].Definition.Default)
	assert.True(t, doc.Entries[6].Definition.Hidden)
	assert.Equal(t, []string{}, doc.Entries[7].Definition.Default)

	derived := doc.Entries[4]
	assert.True(t, derived.Derived())
	assert.Equal(t, []string{"min_post_length", "max_post_length"}, derived.DependsOn)
	assert.Len(t, doc.Definitions(), 7)
}

func TestParseEmptyDocument(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Entries)
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"root is a list", "- title\n"},
		{"category is a scalar", "required: title\n"},
		{"map default", "c:\n  x:\n    default: {a: 1}\n"},
		{"missing default", "c:\n  x:\n    max: 3\n"},
		{"explicit name", "c:\n  x:\n    name: y\n    default: 1\n"},
		{"unknown option", "c:\n  x:\n    default: 1\n    colour: red\n"},
		{"unknown type", "c:\n  x:\n    default: a\n    type: colour\n"},
		{"bounds with custom validator", "c:\n  x:\n    default: a\n    validator: email\n    min: 1\n"},
		{"derived with default", "c:\n  x:\n    default: 1\n    expression: y + 1\n"},
		{"validator true", "c:\n  x:\n    default: 1\n    validator: true\n"},
		{"duplicate name", "a:\n  x: 1\nb:\n  x: 2\n"},
		{"invalid yaml", "c: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, settings.ErrConfiguration), "got %v", err)
		})
	}
}

func TestParseValidatorFalseDisablesValidator(t *testing.T) {
	doc, err := Parse([]byte("c:\n  x:\n    default: 3\n    max: 5\n    validator: false\n"))
	require.NoError(t, err)
	require.Len(t, doc.Entries, 1)
	def := doc.Entries[0].Definition
	assert.True(t, def.DisableValidator)
	assert.Empty(t, def.Validator)
	require.NotNil(t, def.Max)

	engine := newEngine(t)
	require.NoError(t, doc.Apply(engine))
	require.NoError(t, engine.Set(context.Background(), "x", 50))
	got, err := engine.GetInt("x")
	require.NoError(t, err)
	assert.Equal(t, 50, got)
}

func TestParseReportsEveryBadEntry(t *testing.T) {
	doc, err := Parse([]byte("c:\n  good: 1\n  bad_one:\n    max: 1\n  bad_two:\n    default: {a: 1}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_one")
	assert.Contains(t, err.Error(), "bad_two")
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "good", doc.Entries[0].Definition.Name)
}

func TestApplyRegistersEntries(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	doc, err := LoadFile(filepath.Join("testdata", "site_settings.yml"))
	require.NoError(t, err)
	require.NoError(t, doc.Apply(engine))

	v, err := engine.Get("post_length_range")
	require.NoError(t, err)
	assert.Equal(t, 31980, v)
	assert.True(t, engine.IsDerived("post_length_range"))

	require.NoError(t, engine.Set(ctx, "min_post_length", 1000))
	v, _ = engine.Get("post_length_range")
	assert.Equal(t, 31000, v)

	err = engine.Set(ctx, "max_post_length", 10)
	require.Error(t, err, "rule should reject a maximum below the minimum")

	info, err := engine.Describe("title")
	require.NoError(t, err)
	assert.Equal(t, "required", info.Category)
}

func TestApplyAgainKeepsOverrides(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	first, err := Parse([]byte("c:\n  a: 1\n  b: 2\n"))
	require.NoError(t, err)
	require.NoError(t, first.Apply(engine))
	require.NoError(t, engine.Set(ctx, "a", 10))

	second, err := Parse([]byte("c:\n  a: 5\n  b: 7\n"))
	require.NoError(t, err)
	require.NoError(t, second.Apply(engine))

	a, _ := engine.Get("a")
	b, _ := engine.Get("b")
	assert.Equal(t, 10, a)
	assert.Equal(t, 7, b)
}

func TestApplyCollectsRegistrationFailures(t *testing.T) {
	engine := newEngine(t)
	doc, err := Parse([]byte("c:\n  ok: 1\n  later:\n    expression: ok +\n"))
	require.NoError(t, err)

	err = doc.Apply(engine)
	require.Error(t, err)
	assert.True(t, errors.Is(err, settings.ErrConfiguration))
	v, _ := engine.Get("ok")
	assert.Equal(t, 1, v)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
