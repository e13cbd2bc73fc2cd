package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/artwork-table/internal/testutil"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig("TestApp/1.0.0 (test@example.com)")
	cfg.BaseURL = baseURL
	cfg.Retry = fastRetry()
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("TestApp/1.0.0"),
		},
		{
			name:     "empty user agent",
			config:   DefaultConfig("  "),
			errorMsg: "user-agent is required",
		},
		{
			name: "relative base url",
			config: Config{
				UserAgent: "TestApp/1.0.0",
				BaseURL:   "/api/v1",
			},
			errorMsg: `invalid base url "/api/v1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.errorMsg != "" {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c.GetCache() == nil {
				t.Error("default config should enable the cache")
			}
			if c.limiter != nil {
				t.Error("limiter should be disabled without Redis")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("TestApp/1.0.0")

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.RateLimit.RequestsPerWindow != 60 {
		t.Errorf("RequestsPerWindow = %d", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d", cfg.Retry.MaxAttempts)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{200, ""},
		{304, ""},
		{403, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ""},
		{"budget", ErrRateLimited, ErrorClassRateLimit},
		{"api error", &APIError{ErrorClass: ErrorClassServer}, ErrorClassServer},
		{"wrapped api error", errors.Join(ErrRetryExhausted, &APIError{ErrorClass: ErrorClassNetwork}), ErrorClassNetwork},
		{"other", io.EOF, ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGet_HeadersAndURL(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	resp, err := c.Get(context.Background(), "/artworks", url.Values{"page": {"2"}, "limit": {"10"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].Page != 2 || reqs[0].Limit != 10 {
		t.Errorf("page/limit = %d/%d, want 2/10", reqs[0].Page, reqs[0].Limit)
	}
	if reqs[0].UserAgent != "TestApp/1.0.0 (test@example.com)" {
		t.Errorf("User-Agent = %q", reqs[0].UserAgent)
	}
	if reqs[0].Header.Get("AIC-User-Agent") == "" {
		t.Error("AIC-User-Agent header missing")
	}
}

func TestDo_ServesFreshFromCache(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	q := url.Values{"page": {"1"}, "limit": {"12"}}

	for i := 0; i < 3; i++ {
		resp, err := c.Get(context.Background(), "artworks", q)
		if err != nil {
			t.Fatalf("Get() #%d error = %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if len(body) == 0 {
			t.Fatalf("Get() #%d returned empty body", i)
		}
	}

	if n := mock.RequestCount(); n != 1 {
		t.Errorf("upstream requests = %d, want 1", n)
	}
}

func TestDo_CacheDisabled(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()

	c := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.CacheSize = 0 })
	q := url.Values{"page": {"1"}, "limit": {"12"}}

	for i := 0; i < 2; i++ {
		resp, err := c.Get(context.Background(), "artworks", q)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		resp.Body.Close()
	}

	if n := mock.RequestCount(); n != 2 {
		t.Errorf("upstream requests = %d, want 2", n)
	}
}

func TestDo_ConditionalRevalidation(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()
	mock.SetETag(`"v1"`)

	c := newTestClient(t, mock.URL())
	q := url.Values{"page": {"1"}, "limit": {"12"}}

	first, err := c.Get(context.Background(), "artworks", q)
	if err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	firstBody, _ := io.ReadAll(first.Body)
	first.Body.Close()

	second, err := c.Get(context.Background(), "artworks", q)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	secondBody, _ := io.ReadAll(second.Body)
	second.Body.Close()

	if second.StatusCode != http.StatusOK {
		t.Errorf("revalidated StatusCode = %d, want 200", second.StatusCode)
	}
	if string(firstBody) != string(secondBody) {
		t.Error("revalidated body differs from cached body")
	}
	if mock.NotModifiedCount() != 1 {
		t.Errorf("304 responses = %d, want 1", mock.NotModifiedCount())
	}
	if got := mock.Requests()[1].Header.Get("If-None-Match"); got != `"v1"` {
		t.Errorf("If-None-Match = %q", got)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()
	mock.FailNext(http.StatusBadGateway, http.StatusServiceUnavailable)

	c := newTestClient(t, mock.URL())

	resp, err := c.Get(context.Background(), "artworks", url.Values{"page": {"1"}, "limit": {"5"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if n := mock.RequestCount(); n != 3 {
		t.Errorf("upstream requests = %d, want 3", n)
	}
}

func TestDo_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()
	mock.FailNext(500, 500, 500, 500)

	c := newTestClient(t, mock.URL())

	_, err := c.Get(context.Background(), "artworks", url.Values{"page": {"1"}})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError in chain, got %v", err)
	}
	if apiErr.StatusCode != 500 || apiErr.ErrorClass != ErrorClassServer {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()
	mock.FailNext(http.StatusNotFound)

	c := newTestClient(t, mock.URL())

	resp, err := c.Get(context.Background(), "artworks", url.Values{"page": {"1"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
	if n := mock.RequestCount(); n != 1 {
		t.Errorf("upstream requests = %d, want 1", n)
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL + "/api/v1"
	server.Close()

	c := newTestClient(t, base)

	_, err := c.Get(context.Background(), "artworks", nil)
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if ClassifyError(err) != ErrorClassNetwork {
		t.Errorf("ClassifyError() = %q, want network", ClassifyError(err))
	}
}

type stubLimiter struct {
	allow   bool
	checks  atomic.Int32
	updates atomic.Int32
}

func (s *stubLimiter) ShouldAllowRequest(context.Context) (bool, error) {
	s.checks.Add(1)
	return s.allow, nil
}

func (s *stubLimiter) UpdateFromResponse(context.Context, int, http.Header) error {
	s.updates.Add(1)
	return nil
}

func TestDo_LimiterBlocks(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	limiter := &stubLimiter{allow: false}
	c.SetLimiter(limiter)

	_, err := c.Get(context.Background(), "artworks", url.Values{"page": {"1"}})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Error("blocked request must not reach upstream")
	}

	limiter.allow = true
	resp, err := c.Get(context.Background(), "artworks", url.Values{"page": {"1"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if limiter.updates.Load() != 1 {
		t.Errorf("limiter updates = %d, want 1", limiter.updates.Load())
	}
}

// blockingLimiter refuses every request once it has seen a 429, like the
// Redis tracker does after storing a Retry-After block.
type blockingLimiter struct {
	checks  atomic.Int32
	blocked atomic.Bool
}

func (b *blockingLimiter) ShouldAllowRequest(context.Context) (bool, error) {
	b.checks.Add(1)
	return !b.blocked.Load(), nil
}

func (b *blockingLimiter) UpdateFromResponse(_ context.Context, status int, _ http.Header) error {
	if status == http.StatusTooManyRequests {
		b.blocked.Store(true)
	}
	return nil
}

func TestDo_RetryHonoursBudgetBlock(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()
	mock.FailNext(http.StatusTooManyRequests, http.StatusTooManyRequests)

	c := newTestClient(t, mock.URL())
	limiter := &blockingLimiter{}
	c.SetLimiter(limiter)

	_, err := c.Get(context.Background(), "artworks", url.Values{"page": {"1"}})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("upstream requests = %d, want 1 (retry must stop at the block)", mock.RequestCount())
	}
	if limiter.checks.Load() != 2 {
		t.Errorf("limiter checks = %d, want 2", limiter.checks.Load())
	}
}

func TestDo_EveryAttemptSpendsBudget(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()
	mock.FailNext(http.StatusInternalServerError, http.StatusInternalServerError)

	c := newTestClient(t, mock.URL())
	limiter := &stubLimiter{allow: true}
	c.SetLimiter(limiter)

	resp, err := c.Get(context.Background(), "artworks", url.Values{"page": {"1"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if mock.RequestCount() != 3 {
		t.Fatalf("upstream requests = %d, want 3", mock.RequestCount())
	}
	if limiter.checks.Load() != 3 {
		t.Errorf("limiter checks = %d, want one per attempt (3)", limiter.checks.Load())
	}
}

func TestDo_CancelledContext(t *testing.T) {
	mock := testutil.NewMockArtic(30)
	defer mock.Close()
	mock.SetDelay(time.Second)

	c := newTestClient(t, mock.URL())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := c.Get(ctx, "artworks", url.Values{"page": {"1"}})
	if !errors.Is(err, ErrContextCancelled) {
		t.Fatalf("expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestPing_WithoutRedis(t *testing.T) {
	c := newTestClient(t, "http://example.test/api/v1")
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() without Redis = %v, want nil", err)
	}
}
