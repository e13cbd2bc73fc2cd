// Package artwork fetches pages of artwork records from the listing endpoint.
package artwork

import (
	"encoding/json"
)

// Fields requested from the listing endpoint, in column order.
var Fields = []string{
	"id",
	"title",
	"place_of_origin",
	"artist_display",
	"inscriptions",
	"date_start",
	"date_end",
}

// Record is one artwork row. Upstream nulls decode to zero values.
type Record struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	PlaceOfOrigin string `json:"place_of_origin"`
	ArtistDisplay string `json:"artist_display"`
	Inscriptions  string `json:"inscriptions"`
	DateStart     int    `json:"date_start"`
	DateEnd       int    `json:"date_end"`
}

// Page is one successful listing response.
type Page struct {
	// Index is the zero-based page index that was requested.
	Index   int
	Size    int
	Records []Record

	// Total is the record count reported by the server.
	Total int
}

// IDs returns the record identifiers in display order.
func (p Page) IDs() []int64 {
	return IDs(p.Records)
}

// IDs returns the identifiers of records in order.
func IDs(records []Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// listResponse is the wire shape of GET /artworks.
type listResponse struct {
	Data       []Record `json:"data"`
	Pagination struct {
		Total       int `json:"total"`
		Limit       int `json:"limit"`
		Offset      int `json:"offset"`
		TotalPages  int `json:"total_pages"`
		CurrentPage int `json:"current_page"`
	} `json:"pagination"`
}

func decodeList(body []byte) (*listResponse, error) {
	var lr listResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, err
	}
	return &lr, nil
}
