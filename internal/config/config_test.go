package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "LISTEN_ADDR", "STORE_BACKEND", "DB_DRIVER", "DB_CONN", "BOLT_PATH",
	"JWT_SECRET", "TOKEN_TTL", "SECURE_COOKIE", "LOGIN_RATE", "LOGIN_BURST", "LOG_LEVEL",
}

// isolate runs the test from an empty directory with every config variable
// unset. The previous values are restored afterwards.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		unsetenv(t, k)
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func unsetenv(t *testing.T, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, BackendSQL, cfg.StoreBackend)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.UsesDevSecret())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
listen_addr: ":9000"
store_backend: bolt
bolt_path: /tmp/from-yaml.bolt
token_ttl: 2h
log_level: debug
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-dotenv\n"), 0o600))
	t.Setenv("LISTEN_ADDR", ":9100")

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.ListenAddr, "env wins over yaml")
	assert.Equal(t, BackendBolt, cfg.StoreBackend)
	assert.Equal(t, "/tmp/from-yaml.bolt", cfg.BoltPath)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret)
	assert.False(t, cfg.UsesDevSecret())
}

func TestLoadValidation(t *testing.T) {
	isolate(t)
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("TOKEN_TTL", "soon")
	t.Setenv("LOGIN_BURST", "0")
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := Load("")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Len(t, verr.Errors, 4)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
	assert.Contains(t, err.Error(), "TOKEN_TTL")
}

func TestLoadMissingConfigFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
}

func TestDotenvFillsEmptyVariables(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("JWT_SECRET=from-dotenv\nLISTEN_ADDR=:7000\n"), 0o600))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LISTEN_ADDR", ":7100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret, "exported empty value does not hide .env")
	assert.False(t, cfg.UsesDevSecret())
	assert.Equal(t, ":7100", cfg.ListenAddr, "non-empty env wins over .env")
}
