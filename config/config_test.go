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
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoad_FromFile(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
jwt:
  secret_key: "file-secret"
  access_token_ttl: "10m"
session:
  store: memory
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.JWT.SecretKey)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 720*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 3*time.Second, cfg.Session.StoreTimeout)
	assert.True(t, cfg.Cookie.Secure)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, `
jwt:
  secret_key: "file-secret"
redis:
  host: "redis-from-file"
`)
	t.Setenv("JWT_SECRET_KEY", "env-secret")
	t.Setenv("REDIS_HOST", "redis-from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.SecretKey)
	assert.Equal(t, "redis-from-env", cfg.Redis.Host)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "only-env")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "only-env", cfg.JWT.SecretKey)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server:\n  port: \"8080\"\n"))
		assert.EqualError(t, err, "jwt.secret_key must be set")
	})

	t.Run("unknown store", func(t *testing.T) {
		_, err := Load(writeConfig(t, "jwt:\n  secret_key: s\nsession:\n  store: etcd\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported session store")
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		_, err := Load(writeConfig(t, "jwt:\n  secret_key: s\n  refresh_token_ttl: \"0s\"\n"))
		assert.Error(t, err)
	})
}
