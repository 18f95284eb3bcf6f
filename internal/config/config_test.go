package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(NewViper(filepath.Join(t.TempDir(), "missing.yaml")))

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 240*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "s3", cfg.Media.Backend)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.Origins)
	assert.Equal(t, 5, cfg.RateLimit.LoginLimit)
	assert.True(t, cfg.Cookies.Secure)
}

func TestFromViperEnvironmentOverrides(t *testing.T) {
	t.Setenv("VIDTUBE_PORT", "9090")
	t.Setenv("VIDTUBE_AUTH_ACCESS_SECRET", "a")
	t.Setenv("VIDTUBE_AUTH_ACCESS_TTL", "5m")
	t.Setenv("VIDTUBE_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("VIDTUBE_MEDIA_BACKEND", "MinIO")
	t.Setenv("VIDTUBE_REDIS_ADDR", "localhost:6379")

	cfg := FromViper(NewViper(""))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "a", cfg.Auth.AccessSecret)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
	assert.Equal(t, "minio", cfg.Media.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
port: 7000
database:
  url: postgres://example/vidtube
media:
  bucket: clips
cors:
  origins:
    - https://one.example
    - https://two.example
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "postgres://example/vidtube", cfg.DatabaseURL)
	assert.Equal(t, "clips", cfg.Media.Bucket)
	assert.Equal(t, []string{"https://one.example", "https://two.example"}, cfg.CORS.Origins)
}

func TestValidate(t *testing.T) {
	cfg := FromViper(NewViper(""))
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.access_secret is required")
	assert.Contains(t, err.Error(), "media.bucket is required")

	cfg.Auth.AccessSecret = "access"
	cfg.Auth.RefreshSecret = "refresh"
	cfg.Media.Bucket = "clips"
	assert.NoError(t, cfg.Validate())

	cfg.Auth.RefreshSecret = "access"
	assert.Error(t, cfg.Validate())
}
