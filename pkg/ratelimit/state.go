// Package ratelimit keeps the process (or a fleet of processes sharing one
// Redis) inside the upstream API's request budget. The Art Institute of
// Chicago API allows a fixed number of anonymous requests per minute; a
// 429 response with Retry-After blocks further requests until it elapses.
package ratelimit

import (
	"time"
)

// Redis keys for budget state storage.
const (
	RedisKeyWindowPrefix = "artic:rate_limit:window:"
	RedisKeyBlockedUntil = "artic:rate_limit:blocked_until"
)

// Defaults for the upstream budget.
const (
	// DefaultRequestsPerWindow is the documented anonymous limit.
	DefaultRequestsPerWindow = 60

	// DefaultWindow is the budget window length.
	DefaultWindow = time.Minute

	// ThrottleRatio is the share of the budget after which requests are
	// delayed.
	ThrottleRatio = 0.8

	// HealthyRatio is the share of the budget below which state is healthy.
	HealthyRatio = 0.5
)

// BudgetState is the request budget for the current window.
type BudgetState struct {
	// Used is the number of requests issued in the current window,
	// including the one being admitted.
	Used int `json:"used"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`

	// BlockedUntil is set after the upstream answered 429.
	BlockedUntil time.Time `json:"blocked_until"`

	LastUpdate time.Time `json:"last_update"`
	IsHealthy  bool      `json:"is_healthy"`
}

// Remaining returns the requests left in the window, never negative.
func (s *BudgetState) Remaining() int {
	if r := s.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// NeedsCriticalBlock returns true if requests must not be sent.
func (s *BudgetState) NeedsCriticalBlock() bool {
	if time.Now().Before(s.BlockedUntil) {
		return true
	}
	return s.Limit > 0 && s.Used > s.Limit
}

// NeedsThrottling returns true once the window is mostly used up.
func (s *BudgetState) NeedsThrottling() bool {
	if s.Limit <= 0 || s.NeedsCriticalBlock() {
		return false
	}
	return float64(s.Used) >= float64(s.Limit)*ThrottleRatio
}

// TimeUntilReset returns the wait until requests are allowed again.
func (s *BudgetState) TimeUntilReset() time.Duration {
	until := s.ResetAt
	if s.BlockedUntil.After(until) {
		until = s.BlockedUntil
	}
	if d := time.Until(until); d > 0 {
		return d
	}
	return 0
}

// UpdateHealth recomputes IsHealthy.
func (s *BudgetState) UpdateHealth() {
	if s.Limit <= 0 {
		s.IsHealthy = true
		return
	}
	s.IsHealthy = !s.NeedsCriticalBlock() && float64(s.Used) < float64(s.Limit)*HealthyRatio
}
