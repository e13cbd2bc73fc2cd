package cache

import (
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached upstream response.
type CacheKey struct {
	// Endpoint is the request path, e.g. "/api/v1/artworks".
	Endpoint string

	// QueryParams are the request query parameters.
	QueryParams url.Values
}

// String generates a deterministic key string.
//
// Example:
//
//	artic:api/v1/artworks:fields=id,title:limit=12:page=1
func (k CacheKey) String() string {
	parts := []string{"artic"}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		keys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, key+"="+strings.Join(values, ","))
		}
	}

	return strings.Join(parts, ":")
}
