// Package metrics exposes the Prometheus registry shared by the artwork
// table packages. All metrics are defined in their respective packages
// (client, cache, ratelimit, table, web) to maintain modularity and avoid
// circular dependencies.
//
// This package provides the scrape handler and a reference for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the artwork table.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source scraped by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - artic_requests_total{endpoint, status} (Counter): Upstream requests by endpoint and HTTP status
//   - artic_request_duration_seconds{endpoint} (Histogram): Upstream request duration
//   - artic_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - artic_retries_total{error_class} (Counter): Retry attempts by error class
//   - artic_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - artic_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - artic_cache_hits_total{state} (Counter): Cache hits by freshness
//   - artic_cache_misses_total (Counter): Cache misses
//   - artic_cache_entries (Gauge): Responses held in memory
//   - artic_cache_evictions_total (Counter): Entries evicted by the LRU
//   - artic_304_responses_total (Counter): 304 Not Modified responses
//   - artic_conditional_requests_total (Counter): Requests sent with If-None-Match/If-Modified-Since
//
// Request Budget Metrics (pkg/ratelimit):
//   - artic_rate_limit_used (Gauge): Requests issued in the current window
//   - artic_rate_limit_blocks_total (Counter): Requests refused because the budget was exhausted
//   - artic_rate_limit_throttles_total (Counter): Requests delayed near the budget limit
//   - artic_rate_limit_upstream_429_total (Counter): 429 responses that blocked the budget
//
// Table Metrics (pkg/table):
//   - artwork_table_page_loads_total{result} (Counter): Page loads (ok, error, superseded)
//   - artwork_table_selection_changes_total{action} (Counter): Identifiers added/removed by action
//   - artwork_table_bulk_rejected_total (Counter): Bulk-select counts over the available rows
//
// Web Metrics (internal/web):
//   - artwork_table_http_requests_total{route, code} (Counter): Handled UI requests
//   - artwork_table_sessions (Gauge): Live sessions in the session store
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(artic_cache_hits_total[5m])) /
//   (sum(rate(artic_cache_hits_total[5m])) + sum(rate(artic_cache_misses_total[5m])))
//
//   # Budget Pressure
//   artic_rate_limit_used > 48
//
//   # Failed Page Loads
//   rate(artwork_table_page_loads_total{result="error"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(artic_request_duration_seconds_bucket[5m]))
