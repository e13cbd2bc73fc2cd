package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/pagination"
	"github.com/Sternrassler/artwork-table/pkg/table"
)

// inputError is a rejected form value. Notice is shown to the user.
type inputError struct {
	Notice string
	Err    error
}

func (e *inputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Notice, e.Err)
	}
	return e.Notice
}

func (e *inputError) Unwrap() error {
	return e.Err
}

func goToPage(ctx context.Context, ctrl *table.Controller, r *http.Request) error {
	index, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("index")))
	if err != nil {
		return &inputError{Notice: "Page must be a whole number.", Err: err}
	}

	err = ctrl.GoTo(ctx, index)
	if errors.Is(err, pagination.ErrNegativeIndex) {
		return &inputError{Notice: "Page must not be negative.", Err: err}
	}
	return err
}

// toggleSelection applies the checkboxes of the submitted page. The form
// lists the identifiers it rendered in "visible"; a form rendered for a
// different page than the one now loaded is rejected.
func toggleSelection(_ context.Context, ctrl *table.Controller, r *http.Request) error {
	visible, err := parseIDs(r.PostForm["visible"])
	if err != nil {
		return &inputError{Notice: "Invalid row identifier.", Err: err}
	}
	checked, err := parseIDs(r.PostForm["checked"])
	if err != nil {
		return &inputError{Notice: "Invalid row identifier.", Err: err}
	}

	current := artwork.IDs(rowRecords(ctrl.Snapshot().Rows))
	if !slices.Equal(visible, current) {
		return &inputError{Notice: "The page changed before your selection was saved. Please try again."}
	}

	switch r.PostForm.Get("all") {
	case "1":
		checked = visible
	case "0":
		checked = nil
	}

	ctrl.ToggleRows(checked)
	return nil
}

func bulkSelect(_ context.Context, ctrl *table.Controller, r *http.Request) error {
	raw := strings.TrimSpace(r.PostForm.Get("count"))
	n := 0
	if raw != "" {
		var err error
		if n, err = strconv.Atoi(raw); err != nil {
			return &inputError{Notice: "Enter a whole number of rows.", Err: err}
		}
	}

	if _, err := ctrl.BulkSelect(n); err != nil {
		if errors.Is(err, table.ErrBulkCountExceeded) || errors.Is(err, table.ErrInvalidCount) {
			available := ctrl.Snapshot().Available
			return &inputError{
				Notice: fmt.Sprintf("Enter a number between 0 and %d.", available),
				Err:    err,
			}
		}
		return err
	}
	return nil
}

func parseIDs(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func rowRecords(rows []table.Row) []artwork.Record {
	out := make([]artwork.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record
	}
	return out
}
