// Package testutil provides an in-process fake of the artworks listing API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Artwork is the wire shape of one listing row.
type Artwork struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	PlaceOfOrigin *string `json:"place_of_origin"`
	ArtistDisplay string  `json:"artist_display"`
	Inscriptions  *string `json:"inscriptions"`
	DateStart     *int    `json:"date_start"`
	DateEnd       *int    `json:"date_end"`
}

// ListRequest records one call to the listing endpoint.
type ListRequest struct {
	Page      int
	Limit     int
	Query     url.Values
	UserAgent string
	Header    http.Header
}

// MockArtic is a configurable fake of GET /artworks.
type MockArtic struct {
	server *httptest.Server

	mu        sync.RWMutex
	artworks  []Artwork
	failNext  []int
	delay     time.Duration
	etag      string
	requests  []ListRequest
	notModify int
}

// NewMockArtic starts a fake serving total generated artworks.
func NewMockArtic(total int) *MockArtic {
	m := &MockArtic{artworks: GenerateArtworks(total)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/artworks", m.handleList)
	m.server = httptest.NewServer(mux)
	return m
}

// GenerateArtworks builds n deterministic artworks with IDs 1000+i.
func GenerateArtworks(n int) []Artwork {
	out := make([]Artwork, n)
	for i := range out {
		start := 1800 + i
		end := start + 5
		origin := "France"
		out[i] = Artwork{
			ID:            int64(1000 + i),
			Title:         fmt.Sprintf("Artwork %d", i+1),
			PlaceOfOrigin: &origin,
			ArtistDisplay: fmt.Sprintf("Artist %d", i%7),
			DateStart:     &start,
			DateEnd:       &end,
		}
	}
	return out
}

// URL returns the API root, suitable as a client BaseURL.
func (m *MockArtic) URL() string {
	return m.server.URL + "/api/v1"
}

// Close shuts down the fake.
func (m *MockArtic) Close() {
	m.server.Close()
}

// SetArtworks replaces the dataset.
func (m *MockArtic) SetArtworks(a []Artwork) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artworks = a
}

// FailNext makes the next len(codes) requests answer with the given statuses.
func (m *MockArtic) FailNext(codes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, codes...)
}

// SetDelay delays every response.
func (m *MockArtic) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetETag makes responses carry etag and answer 304 on a matching
// If-None-Match.
func (m *MockArtic) SetETag(etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.etag = etag
}

// Requests returns a copy of the recorded requests.
func (m *MockArtic) Requests() []ListRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ListRequest(nil), m.requests...)
}

// RequestCount returns how many requests reached the fake.
func (m *MockArtic) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// NotModifiedCount returns how many 304 responses were sent.
func (m *MockArtic) NotModifiedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notModify
}

func (m *MockArtic) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	m.mu.Lock()
	m.requests = append(m.requests, ListRequest{
		Page:      page,
		Limit:     limit,
		Query:     q,
		UserAgent: r.Header.Get("User-Agent"),
		Header:    r.Header.Clone(),
	})
	delay := m.delay
	var failCode int
	if len(m.failNext) > 0 {
		failCode, m.failNext = m.failNext[0], m.failNext[1:]
	}
	etag := m.etag
	artworks := m.artworks
	if etag != "" && r.Header.Get("If-None-Match") == etag && failCode == 0 {
		m.notModify++
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if failCode != 0 {
		w.WriteHeader(failCode)
		fmt.Fprintf(w, `{"status":%d,"error":"simulated failure"}`, failCode)
		return
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}

	if etag != "" {
		w.Header().Set("ETag", etag)
		// stale immediately so every request revalidates
		w.Header().Set("Cache-Control", "no-cache")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	from := (page - 1) * limit
	to := from + limit
	if from > len(artworks) {
		from = len(artworks)
	}
	if to > len(artworks) {
		to = len(artworks)
	}

	totalPages := (len(artworks) + limit - 1) / limit
	body := map[string]any{
		"pagination": map[string]any{
			"total":        len(artworks),
			"limit":        limit,
			"offset":       (page - 1) * limit,
			"total_pages":  totalPages,
			"current_page": page,
		},
		"data": artworks[from:to],
	}
	_ = json.NewEncoder(w).Encode(body)
}
