package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	budgetUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artic_rate_limit_used",
		Help: "Requests issued in the current upstream budget window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the budget was exhausted",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the budget was nearly exhausted",
	})

	upstreamBackoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_upstream_429_total",
		Help: "Total number of 429 responses that blocked the budget",
	})
)

// Config controls the budget.
type Config struct {
	RequestsPerWindow int
	Window            time.Duration

	// ThrottleDelay is the pause applied in the throttling zone.
	ThrottleDelay time.Duration
}

// DefaultConfig returns the documented upstream limits.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: DefaultRequestsPerWindow,
		Window:            DefaultWindow,
		ThrottleDelay:     500 * time.Millisecond,
	}
}

// Tracker meters requests against a Redis-backed fixed window.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new budget tracker.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = def.RequestsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.ThrottleDelay < 0 {
		cfg.ThrottleDelay = 0
	}
	return &Tracker{
		redis:  redisClient,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// windowKey returns the Redis key and end time of the window containing t.
func (t *Tracker) windowKey(at time.Time) (string, time.Time) {
	slot := at.UnixNano() / int64(t.config.Window)
	resetAt := time.Unix(0, (slot+1)*int64(t.config.Window))
	return RedisKeyWindowPrefix + strconv.FormatInt(slot, 10), resetAt
}

// GetState reads the current window without consuming budget.
func (t *Tracker) GetState(ctx context.Context) (*BudgetState, error) {
	now := t.now()
	key, resetAt := t.windowKey(now)

	used, err := t.redis.Get(ctx, key).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get window counter: %w", err)
	}

	blockedUntil, err := t.blockedUntil(ctx)
	if err != nil {
		return nil, err
	}

	state := &BudgetState{
		Used:         used,
		Limit:        t.config.RequestsPerWindow,
		ResetAt:      resetAt,
		BlockedUntil: blockedUntil,
		LastUpdate:   now,
	}
	state.UpdateHealth()
	return state, nil
}

func (t *Tracker) blockedUntil(ctx context.Context) (time.Time, error) {
	ms, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get blocked until: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// ShouldAllowRequest consumes one unit of budget and reports whether the
// request may be sent. In the throttling zone it waits ThrottleDelay first.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	now := t.now()
	key, resetAt := t.windowKey(now)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, 2*t.config.Window)
	blocked := pipe.Get(ctx, RedisKeyBlockedUntil)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("update window counter: %w", err)
	}

	state := &BudgetState{
		Used:       int(incr.Val()),
		Limit:      t.config.RequestsPerWindow,
		ResetAt:    resetAt,
		LastUpdate: now,
	}
	if ms, err := blocked.Int64(); err == nil {
		state.BlockedUntil = time.UnixMilli(ms)
	}
	state.UpdateHealth()
	budgetUsed.Set(float64(state.Used))

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("used", state.Used).
			Int("limit", state.Limit).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Upstream request budget exhausted - blocking request")
		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("used", state.Used).
			Int("limit", state.Limit).
			Msg("Upstream request budget nearly exhausted - throttling request")
		rateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.config.ThrottleDelay):
		}
	}

	return true, nil
}

// UpdateFromResponse blocks the budget after a 429 for the Retry-After
// duration (or one window when the header is absent or malformed).
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests {
		return nil
	}

	wait := t.config.Window
	if ra := headers.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(ra); err == nil {
			wait = time.Until(at)
		}
	}
	if wait <= 0 {
		return nil
	}

	until := t.now().Add(wait)
	if err := t.redis.Set(ctx, RedisKeyBlockedUntil, until.UnixMilli(), wait).Err(); err != nil {
		return fmt.Errorf("store blocked until: %w", err)
	}

	upstreamBackoffsTotal.Inc()
	t.logger.Warn().
		Time("blocked_until", until).
		Msg("Upstream answered 429 - blocking requests")

	return nil
}
