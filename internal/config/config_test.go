package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "prayer-storage", cfg.Storage.Namespace)
	assert.Equal(t, 7, cfg.Scheduler.HorizonDays)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.Debounce)
	assert.Equal(t, 3*time.Second, cfg.Scheduler.TestDelay)
	assert.Equal(t, 3, cfg.Dispatcher.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Dispatcher.RetryInterval)
	assert.Empty(t, cfg.MQTT.Broker)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: ":9090"
storage:
  driver: sqlite
  sqlite_path: /tmp/mihrab-test.db
dispatcher:
  max_attempts: 5
  stale_after: 2h
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	t.Setenv("MIHRAB_STORAGE_DRIVER", "redis")
	t.Setenv("MIHRAB_APP_TIMEZONE", "Asia/Riyadh")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/mihrab-test.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 5, cfg.Dispatcher.MaxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.Dispatcher.StaleAfter)

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Riyadh", loc.String())
}

func TestAppConfigLocationRejectsUnknownZone(t *testing.T) {
	_, err := AppConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)

	loc, err := AppConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
