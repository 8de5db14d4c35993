package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, uint16(defaultPort), cfg.Port)
	assert.Equal(t, defaultHost, cfg.Host)
	assert.Equal(t, defaultRedisAddr, cfg.RedisHost)
	assert.Equal(t, defaultRedisAddr, cfg.Store.Addr)
	assert.Equal(t, "0.0.0.0:6969", cfg.Addr())
}

func TestParse_FlagsOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--port=7000", "--host=127.0.0.1", "--redis-host=redis:6380"})
	require.NoError(t, err)

	assert.EqualValues(t, 7000, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, "redis:6380", cfg.RedisHost)
	assert.Equal(t, "redis:6380", cfg.Store.Addr)
}

func TestParse_YAMLOverlayFillsUnsetFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listeners: 4\nworkers: 8\nmetrics_addr: \":9100\"\n"), 0o600))

	cfg, err := Parse([]string{"--config=" + path})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Listeners)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	// unspecified on CLI and absent from YAML, so it keeps the flag default
	assert.Equal(t, uint16(defaultPort), cfg.Port)
}

func TestParse_FlagsWinOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 1234\nhost: 10.0.0.1\n"), 0o600))

	cfg, err := Parse([]string{"--config=" + path, "--port=9999"})
	require.NoError(t, err)

	assert.EqualValues(t, 9999, cfg.Port)
	assert.Equal(t, "10.0.0.1", cfg.Host)
}
