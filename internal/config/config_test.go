package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weatherstation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1000, cfg.Telemetry.HistoryCapacity)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.TickInterval)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  frameInterval: 250ms
redis:
  addr: "redis:6379"
  db: 2
telemetry:
  tickInterval: 2s
  historyCapacity: 50
`)
	t.Setenv("HISTORY_CAPACITY", "75")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.FrameInterval)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "", cfg.Redis.Addr, "empty env value disables the mirror")
	assert.Equal(t, 2*time.Second, cfg.Telemetry.TickInterval)
	assert.Equal(t, 75, cfg.Telemetry.HistoryCapacity)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "soon")
	_, err := Load("")
	assert.ErrorContains(t, err, "TICK_INTERVAL")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.HistoryCapacity = 0
	cfg.Telemetry.TickInterval = -time.Second
	cfg.Server.FrameInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "historyCapacity")
	assert.ErrorContains(t, err, "tickInterval")
	assert.ErrorContains(t, err, "frameInterval")
}
