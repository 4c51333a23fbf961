package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, "./uploads", cfg.Uploads.Dir)
	require.EqualValues(t, 32<<20, cfg.Uploads.MaxBytes)
	require.Equal(t, 64, cfg.Realtime.SendBuffer)
	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, 72*time.Hour, cfg.Maintenance.SessionRetention)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9100
  log_level: debug
  public_base_url: https://table.example.com
uploads:
  dir: /var/lib/tablecast/uploads
  max_bytes: 1048576
maintenance:
  enabled: true
  schedule: "@every 1m"
  session_retention: 30m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "https://table.example.com", cfg.Server.PublicBaseURL)
	require.Equal(t, "/var/lib/tablecast/uploads", cfg.Uploads.Dir)
	require.EqualValues(t, 1<<20, cfg.Uploads.MaxBytes)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 1m", cfg.Maintenance.Schedule)
	require.Equal(t, 30*time.Minute, cfg.Maintenance.SessionRetention)
}

func TestConfigureLoggingDefaultsLevel(t *testing.T) {
	require.NoError(t, ConfigureLogging(""))
	require.NoError(t, ConfigureLogging("debug"))
}
