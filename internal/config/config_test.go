package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scrypster/switchboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "SWITCHBOARD_") {
			t.Setenv(key, "")
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.EngineSQLite, cfg.Storage.Engine)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, 10*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, 3, cfg.Transport.BreakerMaxFailures)
	assert.False(t, cfg.Debug.Enabled)
	assert.True(t, cfg.Debug.PayloadWatch)
	assert.Equal(t, "127.0.0.1:9363", cfg.Metrics.Addr,
		"Default metrics address must be loopback")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWITCHBOARD_SERVER_URL", "https://flags.example.com/config")
	t.Setenv("SWITCHBOARD_STORAGE_ENGINE", "badger")
	t.Setenv("SWITCHBOARD_TIMEOUT", "2s")
	t.Setenv("SWITCHBOARD_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("SWITCHBOARD_DEBUG", "yes")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://flags.example.com/config", cfg.Server.URL)
	assert.Equal(t, config.EngineBadger, cfg.Storage.Engine)
	assert.Equal(t, 2*time.Second, cfg.Transport.Timeout)
	assert.InDelta(t, 0.5, cfg.Transport.RequestsPerSecond, 1e-9)
	assert.True(t, cfg.Debug.Enabled)
}

func TestLoadConfig_UnparsableEnvFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWITCHBOARD_BURST", "lots")
	t.Setenv("SWITCHBOARD_BREAKER_TIMEOUT", "soon")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Transport.Burst)
	assert.Equal(t, 30*time.Second, cfg.Transport.BreakerTimeout)
}

func TestLoadConfig_RejectsUnknownEngine(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWITCHBOARD_STORAGE_ENGINE", "mongo")

	_, err := config.LoadConfig()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoadConfig_PostgresRequiresDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWITCHBOARD_STORAGE_ENGINE", "postgres")

	_, err := config.LoadConfig()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	t.Setenv("SWITCHBOARD_DSN", "postgres://localhost/switchboard")
	_, err = config.LoadConfig()
	assert.NoError(t, err)
}

func TestLoadConfigFile_YAMLWithEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  url: https://file.example.com
  app_id: com.example.app
storage:
  engine: memory
transport:
  timeout: 4s
  stream_url: wss://file.example.com/stream
metrics:
  enabled: true
`), 0o600))

	t.Setenv("SWITCHBOARD_SERVER_URL", "https://env.example.com")

	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.URL, "env must win over the file")
	assert.Equal(t, "com.example.app", cfg.Server.AppID)
	assert.Equal(t, config.EngineMemory, cfg.Storage.Engine)
	assert.Equal(t, 4*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "wss://file.example.com/stream", cfg.Transport.StreamURL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 3, cfg.Transport.Burst, "unset keys keep their defaults")
}

func TestLoadConfigFile_Errors(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0o600))
	_, err = config.LoadConfigFile(bad)
	assert.Error(t, err)
}

func TestLoadConfigFile_EmptyPath(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, config.EngineSQLite, cfg.Storage.Engine)
}
