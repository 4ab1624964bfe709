package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's own ~/.lending out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "lending.db", cfg.Database.Path)
	assert.Equal(t, 20, cfg.Cache.MaxSize)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestLoad_FileInHome(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".lending", "lending.yaml"), `
database:
  path: /var/lib/lending/ledger.db
cache:
  max_size: 50
  ttl: 1m
`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/lending/ledger.db", cfg.Database.Path)
	assert.Equal(t, 50, cfg.Cache.MaxSize)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// GIVEN: A file setting the TTL to 1m and the env setting it to 45s
	// THEN: The env wins; untouched keys keep the file's values

	home := isolate(t)
	path := filepath.Join(home, "custom.yaml")
	writeFile(t, path, `
cache:
  max_size: 5
  ttl: 1m
log:
  format: json
`)
	t.Setenv("LENDING_CACHE_TTL", "45s")
	t.Setenv("LENDING_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 5, cfg.Cache.MaxSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "json", cfg.Log.Logger().Format)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	home := isolate(t)

	_, err := Load(filepath.Join(home, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("LENDING_CACHE_MAX_SIZE", "0")
	t.Setenv("LENDING_LOG_FORMAT", "xml")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.max_size")
	assert.Contains(t, err.Error(), "log.format")
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Path: ":memory:"},
		Cache:    CacheConfig{MaxSize: 1, TTL: time.Second},
		Log:      LogConfig{Level: "warn", Format: "json"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Cache.TTL = 0
	cfg.Database.Path = " "
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl")
	assert.Contains(t, err.Error(), "database.path")
}
