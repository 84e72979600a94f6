package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, ".", cfg.WorkDir)
	assert.Equal(t, time.Second, cfg.RateInterval)
	assert.Empty(t, cfg.HistoryPath)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
log_level: debug
provider: anthropic
model: claude-sonnet-4-20250514
work_dir: /tmp
rate_interval: 2s
history_path: /tmp/runs.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, "/tmp", cfg.WorkDir)
	assert.Equal(t, 2*time.Second, cfg.RateInterval)
	assert.Equal(t, "/tmp/runs.db", cfg.HistoryPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLOWMESH_ADDR", ":7070")
	t.Setenv("FLOWMESH_PROVIDER", "anthropic")
	t.Setenv("FLOWMESH_RATE_INTERVAL", "500ms")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 500*time.Millisecond, cfg.RateInterval)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}

func TestLoad_EnvRateIntervalSeconds(t *testing.T) {
	t.Setenv("FLOWMESH_RATE_INTERVAL", "1.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.RateInterval)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o600))

	t.Setenv("FLOWMESH_ADDR", ":6060")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidRateInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_interval: -5s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.RateInterval)
}
