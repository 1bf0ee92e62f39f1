package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/activity"
	"github.com/goliatone/go-settings/pkg/state"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []state.Change
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, change state.Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
	return n.err
}

type countingStore struct {
	*state.MemoryRowStore
	probes int
}

func (s *countingStore) TableExists(ctx context.Context) (bool, error) {
	s.probes++
	return s.MemoryRowStore.TableExists(ctx)
}

func TestDurableProviderMissingTableIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryRowStore()
	store.SetTableExists(false)
	notifier := &recordingNotifier{}
	var logged []settings.LogEvent
	p := state.NewDurableProvider(store,
		state.WithNotifier(notifier),
		state.WithLogger(settings.LoggerFunc(func(e settings.LogEvent) { logged = append(logged, e) })),
	)

	rows, err := p.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, ok, err := p.Find(ctx, "title")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, p.Save(ctx, "title", "Forum", settings.TypeString))
	require.NoError(t, p.Destroy(ctx, "title"))

	assert.Empty(t, notifier.changes, "dropped writes must not notify")
	assert.ErrorIs(t, p.Available(ctx), settings.ErrStorageUnavailable)
	require.NotEmpty(t, logged)
	assert.ErrorIs(t, logged[0].Err, settings.ErrStorageUnavailable)

	store.SetTableExists(true)
	require.NoError(t, p.Save(ctx, "title", "Forum", settings.TypeString))
	row, ok, err := p.Find(ctx, "title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Forum", row.Value)
}

func TestDurableProviderCachesPositiveProbe(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryRowStore: state.NewMemoryRowStore()}
	p := state.NewDurableProvider(store)

	for i := 0; i < 3; i++ {
		_, err := p.All(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.probes)
}

func TestDurableProviderNotifiesAfterWrites(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	p := state.NewDurableProvider(state.NewMemoryRowStore(), state.WithSite("forum"), state.WithNotifier(notifier))
	assert.Equal(t, "forum", p.CurrentSite())

	require.NoError(t, p.Save(ctx, "max_posts", "10", settings.TypeInteger))
	require.NoError(t, p.Destroy(ctx, "max_posts"))

	require.Len(t, notifier.changes, 2)
	assert.Equal(t, state.Change{Site: "forum", Name: "max_posts", Value: "10", DataType: settings.TypeInteger}, notifier.changes[0])
	assert.True(t, notifier.changes[1].Deleted)
	id, err := notifier.changes[1].Ref().Identifier()
	require.NoError(t, err)
	assert.Equal(t, "forum:max_posts", id)
}

func TestDurableProviderNotifierFailureKeepsWrite(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryRowStore()
	p := state.NewDurableProvider(store, state.WithNotifier(&recordingNotifier{err: errors.New("bus down")}))

	require.NoError(t, p.Save(ctx, "title", "Forum", settings.TypeString))
	_, ok, err := store.Find(ctx, "title")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotifiersCollectFailures(t *testing.T) {
	ctx := context.Background()
	first := &recordingNotifier{err: errors.New("first")}
	second := &recordingNotifier{}
	calls := 0
	notifiers := state.Notifiers{first, nil, second, state.NotifierFunc(func(context.Context, state.Change) error {
		calls++
		return errors.New("third")
	})}

	err := notifiers.Notify(ctx, state.Change{Site: "default", Name: "title"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "third")
	assert.Len(t, second.changes, 1)
	assert.Equal(t, 1, calls)
	assert.NoError(t, state.NotifierFunc(nil).Notify(ctx, state.Change{}))
}

func TestActivityNotifier(t *testing.T) {
	ctx := settings.ContextWithActor(context.Background(), "admin")
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	p := state.NewDurableProvider(state.NewMemoryRowStore(), state.WithNotifier(state.ActivityNotifier(emitter)))

	require.NoError(t, p.Save(ctx, "title", "Forum", settings.TypeString))
	require.NoError(t, p.Destroy(ctx, "title"))

	require.Len(t, capture.Events, 2)
	saved := capture.Events[0]
	assert.Equal(t, activity.VerbSettingPersisted, saved.Verb)
	assert.Equal(t, "admin", saved.ActorID)
	assert.Equal(t, "title", saved.ObjectID)
	assert.Equal(t, "Forum", saved.Metadata["new_value"])
	assert.Equal(t, "string", saved.Metadata["data_type"])
	assert.NotEmpty(t, saved.Metadata["change_id"])
	assert.Equal(t, true, capture.Events[1].Metadata["deleted"])

	disabled := state.ActivityNotifier(activity.NewEmitter(nil, activity.Config{Enabled: true}))
	assert.NoError(t, disabled.Notify(ctx, state.Change{Site: "default", Name: "title"}))
}

func TestEngineOverDurableProvider(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryRowStore()
	store.SetTableExists(false)
	p := state.NewDurableProvider(store)
	engine, err := settings.New(p)
	require.NoError(t, err)
	require.NoError(t, engine.Register(settings.Definition{Name: "max_posts", Default: 10}))

	require.NoError(t, engine.Refresh(ctx))
	require.NoError(t, engine.Set(ctx, "max_posts", 20), "writes without a table are dropped, not failed")
	got, err := engine.GetInt("max_posts")
	require.NoError(t, err)
	assert.Equal(t, 20, got)
}
