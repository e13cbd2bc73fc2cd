// Package client provides the HTTP client for the Art Institute of Chicago
// API with request budgeting, an optional in-memory response cache and retries.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artwork-table/pkg/cache"
	"github.com/Sternrassler/artwork-table/pkg/logging"
	"github.com/Sternrassler/artwork-table/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.artic.edu/api/v1"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artic_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artic_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Limiter gates requests against an upstream budget.
type Limiter interface {
	ShouldAllowRequest(ctx context.Context) (bool, error)
	UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.artic.edu/api/v1".
	BaseURL string

	// UserAgent identifies the application to the API (REQUIRED).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// Redis enables the shared request budget. Nil disables budgeting.
	Redis     *redis.Client
	RateLimit ratelimit.Config

	// CacheSize is the number of responses kept in memory. Zero or
	// negative disables caching.
	CacheSize int

	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		RateLimit: ratelimit.DefaultConfig(),
		CacheSize: cache.DefaultSize,
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the upstream API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    Limiter
	budget     *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := logging.NewLogger(logging.ComponentClient)

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil {
		c.budget = ratelimit.NewTracker(cfg.Redis, cfg.RateLimit, logging.NewLogger(logging.ComponentRateLimit))
		c.limiter = c.budget
	}

	if cfg.CacheSize > 0 {
		manager, err := cache.NewManager(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		c.cache = manager
	}

	return c, nil
}

// Do performs an HTTP request with budgeting, caching, and retries.
// Non-retryable 4xx responses are returned as-is for the caller to handle.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Cache lookup. Fresh entries never reach the network or the budget.
	var (
		cacheKey    cache.CacheKey
		cachedEntry *cache.CacheEntry
	)
	cacheable := c.cache != nil && req.Method == http.MethodGet
	if cacheable {
		cacheKey = cache.CacheKey{Endpoint: endpoint, QueryParams: req.URL.Query()}
		if entry, err := c.cache.Get(cacheKey); err == nil {
			cachedEntry = entry
		}
		switch {
		case cachedEntry == nil:
			cache.CacheMisses.Inc()
		case !cachedEntry.IsExpired():
			cache.CacheHits.WithLabelValues("fresh").Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", cachedEntry.TTL()).
				Msg("Serving fresh cached response")
			return cache.EntryToResponse(cachedEntry), nil
		case cache.ShouldMakeConditionalRequest(cachedEntry):
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("AIC-User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("query", req.URL.RawQuery).
		Msg("Executing upstream request")

	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() (ErrorClass, error) {
		// Every attempt, retries included, spends budget and honours a
		// block stored by an earlier 429.
		if c.limiter != nil {
			allowed, err := c.limiter.ShouldAllowRequest(ctx)
			if err != nil {
				// Redis trouble must not take the table down.
				c.logger.Warn().Err(err).Msg("Request budget check failed, sending request anyway")
			} else if !allowed {
				requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
				return ErrorClassClient, ErrRateLimited
			}
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			if ctx.Err() != nil {
				// cancelled by the caller, not worth retrying
				return ErrorClassClient, &APIError{
					ErrorClass: ErrorClassNetwork,
					Message:    "request cancelled",
					Err:        fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err()),
				}
			}
			return ErrorClassNetwork, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: reqErr}
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if c.limiter != nil {
			if err := c.limiter.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update request budget from response")
			}
		}

		errClass := classifyStatus(resp.StatusCode)
		if errClass == "" {
			return "", nil
		}

		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Upstream request error")

		if !shouldRetry(errClass) {
			return "", nil
		}

		resp.Body.Close()
		return errClass, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	})
	if retryErr != nil {
		return nil, retryErr
	}

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		cache.NotModifiedResponses.Inc()
		cache.CacheHits.WithLabelValues("revalidated").Inc()

		// ResponseToEntry closes the 304 body and reads its freshness headers.
		expires := time.Now().Add(cache.DefaultTTL)
		if fresh, err := cache.ResponseToEntry(resp); err == nil {
			expires = fresh.Expires
		} else {
			resp.Body.Close()
		}
		if err := c.cache.UpdateExpires(cacheKey, expires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cached response")
		}
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return cache.EntryToResponse(cachedEntry), nil
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// classifyStatus categorizes an HTTP status; "" means success.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// ClassifyError returns the class of an error produced by Do.
func ClassifyError(err error) ErrorClass {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return ErrorClassRateLimit
	case errors.As(err, &apiErr):
		return apiErr.ErrorClass
	default:
		return ErrorClassNetwork
	}
}

// Get performs a GET request for path (relative to BaseURL) with query.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Ping checks the optional Redis dependency by reading the current budget
// window.
func (c *Client) Ping(ctx context.Context) error {
	if c.budget == nil {
		return nil
	}
	state, err := c.budget.GetState(ctx)
	if err != nil {
		return fmt.Errorf("read request budget: %w", err)
	}
	c.logger.Debug().
		Int("used", state.Used).
		Int("limit", state.Limit).
		Bool("healthy", state.IsHealthy).
		Msg("Request budget reachable")
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetLimiter replaces the request budget (for testing).
func (c *Client) SetLimiter(l Limiter) {
	c.limiter = l
}

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
