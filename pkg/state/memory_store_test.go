package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/state"
	"github.com/goliatone/go-settings/pkg/state/statetest"
)

var (
	_ settings.Provider = (*state.MemoryProvider)(nil)
	_ settings.Provider = (*state.DurableProvider)(nil)
	_ state.RowStore    = (*state.MemoryRowStore)(nil)
)

func TestMemoryRowStoreContract(t *testing.T) {
	statetest.RunRowStoreContract(t, func(t *testing.T) state.RowStore {
		return state.NewMemoryRowStore()
	})
}

func TestMemoryProviderSites(t *testing.T) {
	ctx := context.Background()
	p := state.NewMemoryProvider()
	assert.Equal(t, state.DefaultSite, p.CurrentSite())

	require.NoError(t, p.Save(ctx, "title", "Forum", settings.TypeString))
	p.SetCurrentSite("other")
	_, ok, err := p.Find(ctx, "title")
	require.NoError(t, err)
	assert.False(t, ok, "sites must not share rows")

	require.NoError(t, p.Save(ctx, "title", "Other", settings.TypeString))
	p.SetCurrentSite("")
	assert.Equal(t, state.DefaultSite, p.CurrentSite())
	row, ok, err := p.Find(ctx, "title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Forum", row.Value)

	require.NoError(t, p.Destroy(ctx, "title"))
	rows, err := p.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	p.SetCurrentSite("other")
	p.Clear()
	rows, err = p.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngineOverMemoryProvider(t *testing.T) {
	ctx := context.Background()
	p := state.NewMemoryProvider()
	engine, err := settings.New(p)
	require.NoError(t, err)
	require.NoError(t, engine.Register(settings.Definition{Name: "login_required", Category: "security", Default: false}))

	require.NoError(t, engine.Set(ctx, "login_required", "true"))
	row, ok, err := p.Find(ctx, "login_required")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t", row.Value)
	assert.Equal(t, settings.TypeBool, row.DataType)

	fresh, err := settings.New(p)
	require.NoError(t, err)
	require.NoError(t, fresh.Register(settings.Definition{Name: "login_required", Category: "security", Default: false}))
	require.NoError(t, fresh.Refresh(ctx))
	got, err := fresh.GetBool("login_required")
	require.NoError(t, err)
	assert.True(t, got)
}
