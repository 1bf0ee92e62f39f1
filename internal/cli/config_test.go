package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(newViper(), "")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "default", cfg.Site)
	assert.Equal(t, "settings.db", cfg.SQLite.Path)
	assert.Equal(t, "site_settings_changed", cfg.Postgres.Channel)
}

func TestLoadConfigFileAndEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settingsctl.yaml")
	require.NoError(t, os.WriteFile(file, []byte("site: forum\nsqlite:\n  path: /tmp/forum.db\nlog:\n  level: debug\n"), 0o644))
	t.Setenv("SETTINGS_SITE", "blog")
	t.Setenv("SETTINGS_SCHEMA", "/etc/settings.yml")

	cfg, err := LoadConfig(newViper(), file)
	require.NoError(t, err)
	assert.Equal(t, "blog", cfg.Site)
	assert.Equal(t, "/etc/settings.yml", cfg.Schema)
	assert.Equal(t, "/tmp/forum.db", cfg.SQLite.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsBadBackend(t *testing.T) {
	v := newViper()
	v.Set("backend", "mongo")
	_, err := LoadConfig(v, "")
	require.Error(t, err)

	v = newViper()
	v.Set("backend", BackendPostgres)
	_, err = LoadConfig(v, "")
	require.ErrorContains(t, err, "postgres.url")

	_, err = LoadConfig(newViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewLoggerFansOut(t *testing.T) {
	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "log.json")
	logger, closeLog, err := NewLogger(LogConfig{Level: "info", File: file}, &stderr)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("visible", "setting", "title")
	require.NoError(t, closeLog())

	assert.Contains(t, stderr.String(), "msg=visible")
	assert.NotContains(t, stderr.String(), "hidden")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"setting":"title"`)

	_, _, err = NewLogger(LogConfig{Level: "loud"}, &stderr)
	require.Error(t, err)
}
