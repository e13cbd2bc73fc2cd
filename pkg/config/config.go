// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when the environment leaves a setting empty.
const (
	DefaultBaseURL         = "https://api.artic.edu/api/v1"
	DefaultUserAgent       = "artwork-table/0.1.0"
	DefaultPageSize        = 12
	DefaultPort            = "8080"
	DefaultRateLimit       = 60
	DefaultCacheSize       = 256
	DefaultSessionCapacity = 1024
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultLogLevel        = "info"
)

// Config is the full runtime configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	PageSize  int
	Port      string

	// RedisURL enables the shared request budget when set,
	// e.g. "redis://localhost:6379/0".
	RedisURL string

	RateLimitPerMinute int

	// CacheSize bounds the response cache of the export command. The web
	// UI never caches responses.
	CacheSize int

	SessionCapacity int
	RequestTimeout  time.Duration
	MaxRetries      int

	LogLevel  string
	LogPretty bool
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		BaseURL:            DefaultBaseURL,
		UserAgent:          DefaultUserAgent,
		PageSize:           DefaultPageSize,
		Port:               DefaultPort,
		RateLimitPerMinute: DefaultRateLimit,
		CacheSize:          DefaultCacheSize,
		SessionCapacity:    DefaultSessionCapacity,
		RequestTimeout:     DefaultRequestTimeout,
		MaxRetries:         DefaultMaxRetries,
		LogLevel:           DefaultLogLevel,
	}
}

// Load reads .env (if present) and the process environment on top of
// the defaults. Only malformed values fail here; callers apply their
// overrides and then call Validate.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a config from the process environment only. The result
// is parsed but not validated.
func FromEnv() (*Config, error) {
	cfg := Default()
	var errs []error

	cfg.BaseURL = firstNonEmpty(env("ARTIC_BASE_URL"), cfg.BaseURL)
	cfg.UserAgent = firstNonEmpty(env("ARTIC_USER_AGENT"), cfg.UserAgent)
	cfg.Port = strings.TrimPrefix(firstNonEmpty(env("PORT"), cfg.Port), ":")
	cfg.RedisURL = env("REDIS_URL")
	cfg.LogLevel = firstNonEmpty(env("LOG_LEVEL"), cfg.LogLevel)

	intVar(&errs, "PAGE_SIZE", &cfg.PageSize)
	intVar(&errs, "RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerMinute)
	intVar(&errs, "CACHE_SIZE", &cfg.CacheSize)
	intVar(&errs, "SESSION_CAPACITY", &cfg.SessionCapacity)
	intVar(&errs, "MAX_RETRIES", &cfg.MaxRetries)

	if raw := env("REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT: %w", err))
		} else {
			cfg.RequestTimeout = d
		}
	}
	if raw := env("LOG_PRETTY"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_PRETTY: %w", err))
		} else {
			cfg.LogPretty = v
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base url %q is not an absolute URL", c.BaseURL))
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		errs = append(errs, errors.New("user agent must not be empty"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	if c.RedisURL != "" {
		if _, err := url.Parse(c.RedisURL); err != nil {
			errs = append(errs, fmt.Errorf("redis url: %w", err))
		}
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %d", c.RateLimitPerMinute))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache size must not be negative, got %d", c.CacheSize))
	}
	if c.SessionCapacity <= 0 {
		errs = append(errs, fmt.Errorf("session capacity must be positive, got %d", c.SessionCapacity))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the web server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func intVar(errs *[]error, key string, dst *int) {
	raw := env(key)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
