// Package table owns the state behind the artwork table: the current page,
// the selection, and the pending bulk-select count.
package table

import (
	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/pagination"
)

// Status is the observable state of the table.
type Status string

const (
	// StatusLoading means a request is in flight or nothing has loaded yet.
	StatusLoading Status = "loading"

	// StatusError means the last request failed; the table is replaced by
	// an error panel with a retry action.
	StatusError Status = "error"

	// StatusReady means rows (possibly none) are shown and interactive.
	StatusReady Status = "ready"
)

// DefaultPageSize matches the upstream default page.
const DefaultPageSize = 12

// PageState is the paging part of the controller state. Err and a populated
// row list are mutually exclusive.
type PageState struct {
	Index   int    `json:"index"`
	Size    int    `json:"size"`
	Total   int    `json:"total"`
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

func (s PageState) window() pagination.Window {
	return pagination.Window{Index: s.Index, Size: s.Size, Total: s.Total}
}

// Row is a record plus its checkbox state.
type Row struct {
	artwork.Record
	Selected bool `json:"selected"`
}

// Summary is the footer line.
type Summary struct {
	TotalRecords   int  `json:"total_records"`
	PageIndex      int  `json:"page_index"`
	PageNumber     int  `json:"page_number"`
	PageCount      int  `json:"page_count"`
	LastIndex      int  `json:"last_index"`
	PageSize       int  `json:"page_size"`
	FirstRow       int  `json:"first_row"`
	LastRow        int  `json:"last_row"`
	SelectedCount  int  `json:"selected_count"`
	SelectedOnPage int  `json:"selected_on_page"`
	HasNext        bool `json:"has_next"`
	HasPrev        bool `json:"has_prev"`
}

// View is an immutable snapshot for rendering.
type View struct {
	Status       Status    `json:"status"`
	Page         PageState `json:"page"`
	Rows         []Row     `json:"rows"`
	Error        string    `json:"error,omitempty"`
	PendingCount int       `json:"pending_count"`

	// Available is how many rows on this page bulk-select can still add.
	Available int     `json:"available"`
	Summary   Summary `json:"summary"`
}
