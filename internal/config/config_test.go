package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/sparqlconn/internal/graph"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "localhost", cfg.Store.Host)
	assert.Equal(t, 8000, cfg.Store.Port)
	assert.Equal(t, "digest", cfg.Store.Auth)
	assert.Equal(t, 30*time.Second, cfg.Store.RequestTimeout)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	chdir(t, t.TempDir())
	t.Setenv("STORE_HOST", "ml.internal")
	t.Setenv("STORE_PORT", "8011")
	t.Setenv("STORE_USERNAME", "admin")
	t.Setenv("STORE_PASSWORD", "admin")
	t.Setenv("STORE_AUTH", "BASIC")
	t.Setenv("STORE_DATABASE", "Documents")
	t.Setenv("STORE_RATE_LIMIT", "12.5")
	t.Setenv("STORE_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.Store.GraphOptions()
	assert.Equal(t, "ml.internal", opts.Host)
	assert.Equal(t, 8011, opts.Port)
	assert.Equal(t, graph.AuthBasic, opts.AuthScheme)
	assert.Equal(t, "Documents", opts.Database)
	assert.Equal(t, 12.5, opts.RateLimit)
	assert.Equal(t, 5*time.Second, opts.RequestTimeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	chdir(t, t.TempDir())

	t.Setenv("STORE_AUTH", "kerberos")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_AUTH", "none")
	t.Setenv("STORE_PORT", "70000")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("STORE_PORT", "8000")
	t.Setenv("SERVER_WRITE_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "store.env")
	require.NoError(t, os.WriteFile(file, []byte("STORE_DATABASE=from-file\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("ENV_FILE", file)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORE_DATABASE", "")
	os.Unsetenv("STORE_DATABASE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Store.Database)
	assert.Equal(t, "warn", cfg.Logging.Level, "environment wins over the file")
}

func TestLoadMissingExplicitDotenv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	_, err := Load()
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
