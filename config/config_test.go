package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DB_DSN", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "REDIS_ADDR",
		"RETRY_MAX_ATTEMPTS", "RETRY_INITIAL_BACKOFF", "RETRY_BASE", "RETRY_LEASE_TIMEOUT", "PROVIDER_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, 2.0, cfg.Retry.Base)
	assert.Equal(t, 3*time.Minute, cfg.Providers.Timeout)
	assert.Less(t, cfg.Providers.Timeout, cfg.Retry.LeaseTimeout)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "postgres://postgres:@localhost:5432/arena?sslmode=disable", cfg.Database.DatabaseURL())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DB_DSN", "postgres://u:p@db:5432/x")
	t.Setenv("RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("RETRY_INITIAL_BACKOFF", "500ms")
	t.Setenv("PROVIDER_RATE_LIMIT", "2.5")
	t.Setenv("GOOGLE_USE_ADC", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.Database.DatabaseURL())
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 2.5, cfg.Providers.RateLimit)
	assert.True(t, cfg.Providers.GoogleUseADC)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }, "PORT"},
		{"no database", func(c *Config) { c.Database.DSN = ""; c.Database.Host = "" }, "DB_DSN"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "RETRY_MAX_ATTEMPTS"},
		{"shrinking backoff", func(c *Config) { c.Retry.Base = 0.5 }, "RETRY_BASE"},
		{"provider timeout outlives lease", func(c *Config) { c.Providers.Timeout = 5 * time.Minute }, "RETRY_LEASE_TIMEOUT"},
		{"negative rate", func(c *Config) { c.Providers.RateLimit = -1 }, "PROVIDER_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:    ServerConfig{Port: "8080"},
				Database:  DatabaseConfig{Host: "localhost"},
				Retry:     RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, Base: 2, LeaseTimeout: 5 * time.Minute},
				Providers: ProvidersConfig{Timeout: 3 * time.Minute},
			}
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
