package cache

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a nil or unusable entry.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultSize is the number of responses kept when no size is configured.
const DefaultSize = 256

// Manager holds cached responses in a bounded LRU.
type Manager struct {
	entries *lru.Cache[string, *CacheEntry]
}

// NewManager creates a cache manager holding at most size entries.
func NewManager(size int) (*Manager, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.NewWithEvict[string, *CacheEntry](size, func(string, *CacheEntry) {
		CacheEvictions.Inc()
		CacheEntries.Dec()
	})
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Manager{entries: entries}, nil
}

// Get returns the entry stored under key, fresh or stale.
// Returns ErrCacheMiss if nothing is stored.
func (m *Manager) Get(key CacheKey) (*CacheEntry, error) {
	entry, ok := m.entries.Get(key.String())
	if !ok {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// Set stores entry under key. Stale entries are stored too when they carry
// a validator, so a later request can revalidate them.
func (m *Manager) Set(key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry", ErrInvalidEntry)
	}
	if entry.IsExpired() && !ShouldMakeConditionalRequest(entry) {
		return nil
	}

	k := key.String()
	if !m.entries.Contains(k) {
		CacheEntries.Inc()
	}
	m.entries.Add(k, entry)
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(key CacheKey) {
	m.entries.Remove(key.String())
}

// UpdateExpires extends the freshness of an existing entry, typically after
// a 304 response carried a new Expires header.
func (m *Manager) UpdateExpires(key CacheKey, expires time.Time) error {
	entry, err := m.Get(key)
	if err != nil {
		return err
	}

	updated := *entry
	updated.Expires = expires
	m.entries.Add(key.String(), &updated)
	return nil
}

// Len returns the number of stored entries.
func (m *Manager) Len() int {
	return m.entries.Len()
}

// Purge drops every entry.
func (m *Manager) Purge() {
	m.entries.Purge()
}
