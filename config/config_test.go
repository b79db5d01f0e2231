// ABOUTME: Tests for configuration loading, precedence, and saving
// ABOUTME: Uses temp files for the config and .env so the real environment is untouched
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/prospekt/charm"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaultsWhenNothingExists(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoadInput{
		DotEnvPath: filepath.Join(dir, "missing.env"),
		Env:        map[string]string{},
	})
	require.NoError(t, err)

	assert.Equal(t, BackendCharm, cfg.Backend)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, 5*time.Second, cfg.Interval())
	assert.Equal(t, "sv", cfg.Collation)
	assert.Equal(t, DefaultDBPath(), cfg.DBPath)
}

func TestLoadJSONCFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		// local only
		"backend": "sqlite",
		"db_path": "/tmp/p.db",
		"auto_sync": false,
		"poll_interval": "250ms",
		"extra_statuses": ["On Hold",],
	}`)

	cfg, err := Load(LoadInput{ConfigPath: path, DotEnvPath: filepath.Join(dir, "none"), Env: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "/tmp/p.db", cfg.DBPath)
	assert.False(t, cfg.AutoSync)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval())
	assert.Equal(t, []string{"On Hold"}, cfg.ExtraStatuses)
	assert.Equal(t, path, cfg.Path)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"backend": "sqlite", "collation": "de", "log_level": "warn"}`)
	dotenv := writeFile(t, dir, ".env", "PROSPEKT_COLLATION=en\nPROSPEKT_LOG_LEVEL=debug\n")

	cfg, err := Load(LoadInput{
		ConfigPath: path,
		DotEnvPath: dotenv,
		Env: map[string]string{
			"PROSPEKT_LOG_LEVEL":      "error",
			"PROSPEKT_EXTRA_STATUSES": "Paused, ,Dormant",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "en", cfg.Collation)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, []string{"Paused", "Dormant"}, cfg.ExtraStatuses)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(LoadInput{ConfigPath: filepath.Join(dir, "nope.json"), Env: map[string]string{}})
	assert.ErrorIs(t, err, ErrConfigNotFound)

	bad := writeFile(t, dir, "bad.json", `{"backend": `)
	_, err = Load(LoadInput{ConfigPath: bad, Env: map[string]string{}})
	assert.ErrorIs(t, err, ErrConfigInvalid)

	unknown := writeFile(t, dir, "unknown.json", `{"backend": "postgres"}`)
	_, err = Load(LoadInput{ConfigPath: unknown, Env: map[string]string{}})
	assert.ErrorIs(t, err, ErrConfigInvalid)

	_, err = Load(LoadInput{ConfigPath: writeFile(t, dir, "ok.json", `{}`), Env: map[string]string{"PROSPEKT_AUTO_SYNC": "maybe"}})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestSaveAssignsDeviceIDAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Path = filepath.Join(dir, "nested", "config.json")
	cfg.Backend = BackendSQLite
	cfg.ExtraStatuses = []string{"Paused"}

	require.NoError(t, cfg.Save())
	require.Len(t, cfg.DeviceID, 26)
	id := cfg.DeviceID

	loaded, err := Load(LoadInput{ConfigPath: cfg.Path, DotEnvPath: filepath.Join(dir, "none"), Env: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, id, loaded.DeviceID)
	assert.Equal(t, BackendSQLite, loaded.Backend)
	assert.Equal(t, []string{"Paused"}, loaded.ExtraStatuses)

	require.NoError(t, loaded.Save())
	assert.Equal(t, id, loaded.DeviceID)
}

func TestLoggerHonoursLevelAndDevice(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	cfg.DeviceID = "01TESTDEVICE"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "01TESTDEVICE")
}

func TestCharmSettings(t *testing.T) {
	cfg := Default()
	assert.Equal(t, charm.DefaultCharmHost, cfg.Charm().Host)
	assert.True(t, cfg.Charm().AutoSync)

	cfg.CharmHost = "charm.example.com"
	cfg.AutoSync = false
	assert.Equal(t, "charm.example.com", cfg.Charm().Host)
	assert.False(t, cfg.Charm().AutoSync)
}
