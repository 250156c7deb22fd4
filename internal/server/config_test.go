package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	// Defaults must not depend on the process environment.
	t.Setenv("SERVER_PORT", ":9999")

	cfg := NewConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(512), cfg.MaxMessageSize)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 10, cfg.AuthRateLimit.Burst)
	assert.Equal(t, 30, cfg.AuthRateLimit.PerMinute)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.BroadcastOnDisconnect)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "250ms")
	t.Setenv("AUTH_RATE_LIMIT_BURST", "3")
	t.Setenv("AUTH_RATE_LIMIT_PER_MINUTE", "12")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("DATABASE_URL", "sqlite:///tmp/chat.db")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("BROADCAST_ON_DISCONNECT", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.MaxMessageSize)
	assert.Equal(t, RateLimitConfig{Burst: 7, RefillInterval: 250 * time.Millisecond}, cfg.RateLimit)
	assert.Equal(t, AuthRateLimitConfig{Burst: 3, PerMinute: 12}, cfg.AuthRateLimit)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "sqlite:///tmp/chat.db", cfg.DatabaseURL)
	assert.Equal(t, int32(4), cfg.DBMaxConns)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.BroadcastOnDisconnect)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewConfigFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "lots")

	_, err := NewConfigFromEnv()
	assert.Error(t, err)
}

func TestConfigSanitize(t *testing.T) {
	cfg := &Config{
		MaxMessageSize: -1,
		RateLimit:      RateLimitConfig{Burst: 0, RefillInterval: -time.Second},
		AuthRateLimit:  AuthRateLimitConfig{Burst: -2, PerMinute: 0},
	}
	cfg.Sanitize()

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, int64(defaultMaxMessageSize), cfg.MaxMessageSize)
	assert.Equal(t, defaultBurst, cfg.RateLimit.Burst)
	assert.Equal(t, defaultRefill, cfg.RateLimit.RefillInterval)
	assert.Equal(t, defaultAuthBurst, cfg.AuthRateLimit.Burst)
	assert.Equal(t, defaultAuthPerMinute, cfg.AuthRateLimit.PerMinute)
}

func TestConfigValidate(t *testing.T) {
	cfg := NewConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())
}
