// Package statetest holds the behavioral contract every state.RowStore must
// satisfy.
package statetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/state"
)

// RunRowStoreContract runs the contract against stores built by newStore.
// Each subtest receives a fresh, migrated, empty store.
func RunRowStoreContract(t *testing.T, newStore func(t *testing.T) state.RowStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("table exists", func(t *testing.T) {
		exists, err := newStore(t).TableExists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("empty store", func(t *testing.T) {
		store := newStore(t)
		rows, err := store.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)

		_, ok, err := store.Find(ctx, "title")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("upsert inserts then overwrites", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Upsert(ctx, settings.Row{Name: "max_posts", Value: "10", DataType: settings.TypeInteger}))
		require.NoError(t, store.Upsert(ctx, settings.Row{Name: "max_posts", Value: "t", DataType: settings.TypeBool}))

		row, ok, err := store.Find(ctx, "max_posts")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, settings.Row{Name: "max_posts", Value: "t", DataType: settings.TypeBool}, row)

		rows, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("all is ordered by name", func(t *testing.T) {
		store := newStore(t)
		for _, name := range []string{"tagline", "contact_email", "title"} {
			require.NoError(t, store.Upsert(ctx, settings.Row{Name: name, Value: name, DataType: settings.TypeString}))
		}
		rows, err := store.All(ctx)
		require.NoError(t, err)
		names := make([]string, len(rows))
		for i, row := range rows {
			names[i] = row.Name
		}
		assert.Equal(t, []string{"contact_email", "tagline", "title"}, names)
	})

	t.Run("values round trip verbatim", func(t *testing.T) {
		store := newStore(t)
		row := settings.Row{Name: "top_menu", Value: "latest|new|top", DataType: settings.TypeList}
		require.NoError(t, store.Upsert(ctx, row))
		empty := settings.Row{Name: "tagline", Value: "", DataType: settings.TypeString}
		require.NoError(t, store.Upsert(ctx, empty))

		got, ok, err := store.Find(ctx, "top_menu")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, row, got)

		got, ok, err = store.Find(ctx, "tagline")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, empty, got)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Upsert(ctx, settings.Row{Name: "title", Value: "Forum", DataType: settings.TypeString}))
		require.NoError(t, store.Delete(ctx, "title"))
		require.NoError(t, store.Delete(ctx, "never_written"))

		_, ok, err := store.Find(ctx, "title")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
