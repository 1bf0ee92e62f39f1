package schema

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReappliesOnWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "settings.yml")
	writeFile(t, path, "c:\n  greeting: hello\n")

	engine := newEngine(t)
	applied := make(chan error, 16)
	w, err := Watch(ctx, path, engine, OnApply(func(_ *Document, err error) {
		select {
		case applied <- err:
		default:
		}
	}))
	require.NoError(t, err)
	defer w.Close()

	v, _ := engine.Get("greeting")
	assert.Equal(t, "hello", v)

	writeFile(t, path, "c:\n  greeting: bonjour\n")
	require.Eventually(t, func() bool {
		v, _ := engine.Get("greeting")
		return v == "bonjour"
	}, 5*time.Second, 20*time.Millisecond)

	writeFile(t, path, "c:\n  greeting:\n    max: 1\n")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-applied:
			if err == nil {
				continue
			}
			v, _ := engine.Get("greeting")
			assert.Equal(t, "bonjour", v, "a broken file keeps the last good schema")
			return
		case <-deadline:
			t.Fatal("expected the broken schema to be reported")
		}
	}
}

func TestWatchFailsOnBrokenInitialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	writeFile(t, path, "c:\n  x:\n    max: 1\n")
	_, err := Watch(context.Background(), path, newEngine(t))
	require.Error(t, err)
}

func TestWatchCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	writeFile(t, path, "c:\n  x: 1\n")
	w, err := Watch(context.Background(), path, newEngine(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
