package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"ARTIC_BASE_URL", "ARTIC_USER_AGENT", "PAGE_SIZE", "PORT", "REDIS_URL",
	"RATE_LIMIT_PER_MINUTE", "CACHE_SIZE", "SESSION_CAPACITY", "REQUEST_TIMEOUT",
	"MAX_RETRIES", "LOG_LEVEL", "LOG_PRETTY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 12, cfg.PageSize)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Empty(t, cfg.RedisURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARTIC_BASE_URL", "http://localhost:9999/api/v1")
	t.Setenv("ARTIC_USER_AGENT", "tests/2.0 (dev@example.com)")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("PORT", ":9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("MAX_RETRIES", "1")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/api/v1", cfg.BaseURL)
	assert.Equal(t, "tests/2.0 (dev@example.com)", cfg.UserAgent)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnv_ParseErrors(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PAGE_SIZE", "twelve"},
		{"REQUEST_TIMEOUT", "30"},
		{"LOG_PRETTY", "maybe"},
		{"CACHE_SIZE", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative base url", func(c *Config) { c.BaseURL = "/api/v1" }, "absolute URL"},
		{"empty user agent", func(c *Config) { c.UserAgent = " " }, "user agent"},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, "page size"},
		{"bad port", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"zero rate limit", func(c *Config) { c.RateLimitPerMinute = 0 }, "rate limit"},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, "cache size"},
		{"zero sessions", func(c *Config) { c.SessionCapacity = 0 }, "session capacity"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "request timeout"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "max retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidate_DisabledCacheIsAllowed(t *testing.T) {
	cfg := Default()
	cfg.CacheSize = 0
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_LeavesValidationToCaller(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGE_SIZE", "0")
	t.Setenv("PORT", "70000")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	cfg.PageSize = 5
	cfg.Port = "9090"
	assert.NoError(t, cfg.Validate())
}
