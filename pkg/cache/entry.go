package cache

import (
	"net/http"
	"time"
)

// CacheEntry is a stored upstream response.
type CacheEntry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// ETag for If-None-Match.
	ETag string `json:"etag"`

	// Expires is when the entry stops being fresh.
	Expires time.Time `json:"expires"`

	// LastModified for If-Modified-Since.
	LastModified time.Time `json:"last_modified"`

	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	CachedAt   time.Time   `json:"cached_at"`
}

// IsExpired returns true once the entry is no longer fresh.
func (e *CacheEntry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness, or 0 if already stale.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
