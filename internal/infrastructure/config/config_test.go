package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "/latest-release", cfg.Release.Route)
	assert.Contains(t, cfg.Release.URL, "wasm.zip")

	assert.Equal(t, 3*time.Second, cfg.Bootstrap.NoticeDelay)
	assert.Empty(t, cfg.Bootstrap.BundlePath)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Bootstrap.NoticeDelay)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("RELEASE_URL", "http://upstream.test/wasm.zip")
	t.Setenv("BOOTSTRAP_NOTICE_DELAY", "250ms")
	t.Setenv("BOOTSTRAP_BUNDLE_PATH", "/srv/ncube/wasm.zip")
	t.Setenv("LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "http://upstream.test/wasm.zip", cfg.Release.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Bootstrap.NoticeDelay)
	assert.Equal(t, "/srv/ncube/wasm.zip", cfg.Bootstrap.BundlePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("BOOTSTRAP_NOTICE_DELAY", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncube.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
bridge:
  export_dir: /tmp/exports
`), 0o644))

	cfg := Default()
	require.NoError(t, cfg.ApplyFile(path))

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "/tmp/exports", cfg.Bridge.ExportDir)
	// Untouched keys keep their values.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3*time.Second, cfg.Bootstrap.NoticeDelay)
}

func TestLoadAppliesFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncube.yaml")
	require.NoError(t, os.WriteFile(path, []byte("release:\n  route: /bundle\n"), 0o644))
	t.Setenv(FileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/bundle", cfg.Release.Route)
}

func TestSourceURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://127.0.0.1:8000/latest-release", cfg.SourceURL())

	cfg.Bootstrap.SourceURL = "https://mirror.test/wasm.zip"
	assert.Equal(t, "https://mirror.test/wasm.zip", cfg.SourceURL())
}
