// Package cache keeps listing responses for the lifetime of the process so
// that paging back and forth inside a session does not refetch unchanged pages.
//
// Entries live in a bounded in-memory LRU and are never written anywhere
// else; restarting the process starts from an empty cache.
//
// # Freshness
//
// An entry is fresh until the Expires header (or Cache-Control max-age) of the
// response it was built from. Fresh entries are served without a request.
// Stale entries are kept until evicted and used for conditional requests:
//
//	entry, err := manager.Get(key)
//	if err == nil && entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 response means entry.Data is still current
//	}
//
// # Metrics
//
//   - artic_cache_hits_total{state="fresh|revalidated"}
//   - artic_cache_misses_total
//   - artic_cache_entries
//   - artic_304_responses_total
//   - artic_conditional_requests_total
package cache
