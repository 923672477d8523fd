package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(NewViper())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "critiq", cfg.MongoDatabase)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiry)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenExpiry)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.NotifyOnComment)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "Production")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "1h")
	t.Setenv("MEDIA_BACKEND", "S3")
	t.Setenv("NOTIFY_ON_COMMENT", "true")

	cfg := Load(NewViper())

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.AccessTokenExpiry)
	assert.Equal(t, "s3", cfg.MediaBackend)
	assert.True(t, cfg.NotifyOnComment)
}

func TestValidate(t *testing.T) {
	cfg := Load(NewViper())

	require.Error(t, cfg.Validate(false), "secrets are required")

	cfg.AccessTokenSecret = "access"
	cfg.RefreshTokenSecret = "refresh"
	assert.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true), "mongo uri is required")

	cfg.MongoURI = "mongodb://localhost:27017"
	assert.NoError(t, cfg.Validate(true))

	cfg.MediaBackend = "ftp"
	assert.Error(t, cfg.Validate(true))
}
