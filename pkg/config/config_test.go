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

	assert.Equal(t, "gluster", cfg.Gluster)
	assert.Equal(t, "/var/lib/gluster-reconciler", cfg.DataDir)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, uint(10), cfg.Confirm.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Confirm.Delay)
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
	assert.Empty(t, cfg.LocalPeerAliases)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvPrefix+"GLUSTER", "/usr/sbin/gluster")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")
	t.Setenv(EnvPrefix+"CONFIRM_DELAY", "500ms")
	t.Setenv(EnvPrefix+"LOCAL_PEER_ALIASES", "gfs1.internal,10.1.0.1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/usr/sbin/gluster", cfg.Gluster)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Confirm.Delay)
	assert.Equal(t, []string{"gfs1.internal", "10.1.0.1"}, cfg.LocalPeerAliases)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dataDir: /srv/reconciler
historyLimit: 5
log:
  level: warn
  json: true
confirm:
  attempts: 3
`), 0644))
	t.Setenv(EnvPrefix+"LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/reconciler", cfg.DataDir)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "error", cfg.Log.Level, "environment wins over the file")
	assert.Equal(t, uint(3), cfg.Confirm.Attempts)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIRM_ATTEMPTS", "0")

	_, err := Load("")
	assert.ErrorContains(t, err, "confirm.attempts")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
