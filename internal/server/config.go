// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat service.
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultPort           = ":8080"
	defaultMaxMessageSize = 512
	defaultBurst          = 5
	defaultRefill         = time.Second
	defaultAuthBurst      = 10
	defaultAuthPerMinute  = 30
)

// ErrMissingJWTSecret is returned by Validate when no signing secret is set.
var ErrMissingJWTSecret = errors.New("JWT_SECRET_KEY must be set")

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// AuthRateLimitConfig throttles /register and /login per client IP.
type AuthRateLimitConfig struct {
	Burst     int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`
	PerMinute int `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string   `env:"SERVER_PORT" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`
	MaxMessageSize int64    `env:"MAX_MESSAGE_SIZE" envDefault:"512"`
	RateLimit      RateLimitConfig
	AuthRateLimit  AuthRateLimitConfig

	JWTSecret   string `env:"JWT_SECRET_KEY"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	BcryptCost  int    `env:"BCRYPT_COST" envDefault:"10"`

	// CookieSecure marks the token cookie Secure. SameSite=None cookies are
	// only accepted by browsers when Secure is set.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	BroadcastOnDisconnect bool   `env:"BROADCAST_ON_DISCONNECT" envDefault:"true"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := &Config{}
	// An empty environment leaves only the envDefault values.
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	cfg.Sanitize()
	return cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize replaces out-of-range values with their defaults.
func (c *Config) Sanitize() {
	if c.Port == "" {
		c.Port = defaultPort
	}

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}

	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaultBurst
	}

	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = defaultRefill
	}

	if c.AuthRateLimit.Burst <= 0 {
		c.AuthRateLimit.Burst = defaultAuthBurst
	}

	if c.AuthRateLimit.PerMinute <= 0 {
		c.AuthRateLimit.PerMinute = defaultAuthPerMinute
	}

	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
}

// Validate reports settings the process cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}
