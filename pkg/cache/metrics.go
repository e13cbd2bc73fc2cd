package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups answered from cache, by state
	// ("fresh" or "revalidated").
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artic_cache_hits_total",
			Help: "Total number of listing cache hits",
		},
		[]string{"state"},
	)

	// CacheMisses counts lookups with no usable entry.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artic_cache_misses_total",
			Help: "Total number of listing cache misses",
		},
	)

	// CacheEntries tracks the number of entries currently held.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artic_cache_entries",
			Help: "Current number of cached listing responses",
		},
	)

	// CacheEvictions counts entries dropped by the LRU.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artic_cache_evictions_total",
			Help: "Total number of listing responses evicted from the cache",
		},
	)

	// NotModifiedResponses counts 304 responses.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artic_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent counts requests sent with validators.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artic_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)
)
