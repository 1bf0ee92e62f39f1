//go:build integration

package pgstore_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/state"
	"github.com/goliatone/go-settings/pkg/state/pgstore"
	"github.com/goliatone/go-settings/pkg/state/statetest"
)

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupTestDB creates a throwaway database with migrations applied.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	host := getEnvOrDefault("SETTINGS_PG_HOST", "localhost")
	port := getEnvOrDefault("SETTINGS_PG_PORT", "5432")
	user := getEnvOrDefault("SETTINGS_PG_USER", os.Getenv("USER"))
	password := os.Getenv("SETTINGS_PG_PASSWORD")
	baseDB := getEnvOrDefault("SETTINGS_PG_DBNAME", "postgres")

	connString := func(db string) string {
		if password != "" {
			return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, db)
		}
		return fmt.Sprintf("postgresql://%s@%s:%s/%s?sslmode=disable", user, host, port, db)
	}

	basePool, err := pgxpool.New(ctx, connString(baseDB))
	require.NoError(t, err)
	dbName := fmt.Sprintf("test_settings_%d_%d", time.Now().Unix(), rand.Intn(10000))
	_, err = basePool.Exec(ctx, "CREATE DATABASE "+dbName)
	require.NoError(t, err)

	pool, err := pgstore.NewConnectionPool(ctx, connString(dbName))
	require.NoError(t, err)
	require.NoError(t, pgstore.RunMigrationsUp(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		_, _ = basePool.Exec(context.Background(), "DROP DATABASE IF EXISTS "+dbName)
		basePool.Close()
	})
	return pool
}

func TestStoreContract(t *testing.T) {
	statetest.RunRowStoreContract(t, func(t *testing.T) state.RowStore {
		store, err := pgstore.New(setupTestDB(t))
		require.NoError(t, err)
		return store
	})
}

func TestMigrationVersion(t *testing.T) {
	pool := setupTestDB(t)
	require.NoError(t, pgstore.RunMigrationsUp(context.Background(), pool))
	version, dirty, err := pgstore.MigrationVersion(context.Background(), pool)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestNotifierReachesListener(t *testing.T) {
	pool := setupTestDB(t)
	store, err := pgstore.New(pool)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	received := make(chan state.Ref, 1)
	listener := pgstore.NewListener(pool, "", nil)
	done := make(chan error, 1)
	go func() {
		done <- listener.Listen(ctx, func(_ context.Context, ref state.Ref) {
			select {
			case received <- ref:
			default:
			}
		})
	}()

	provider := state.NewDurableProvider(store, state.WithSite("forum"),
		state.WithNotifier(pgstore.NewNotifier(pool, "")))

	// LISTEN is issued asynchronously; keep writing until one is observed.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		require.NoError(t, provider.Save(ctx, "title", "Forum", settings.TypeString))
		select {
		case ref := <-received:
			assert.Equal(t, state.Ref{Site: "forum", Name: "title"}, ref)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-ticker.C:
		case <-ctx.Done():
			t.Fatal("no notification received")
		}
	}
}
