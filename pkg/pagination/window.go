package pagination

import (
	"errors"
	"fmt"
)

// ErrNegativeIndex is returned for page indices below zero.
var ErrNegativeIndex = errors.New("page index must not be negative")

// Window describes one page of a dataset of Total records.
type Window struct {
	Index int
	Size  int
	Total int
}

// PageCount returns the number of pages, 0 for an empty dataset.
func (w Window) PageCount() int {
	if w.Size <= 0 || w.Total <= 0 {
		return 0
	}
	return (w.Total + w.Size - 1) / w.Size
}

// LastIndex returns the zero-based index of the last page, 0 when empty.
func (w Window) LastIndex() int {
	if n := w.PageCount(); n > 0 {
		return n - 1
	}
	return 0
}

// RequestPage returns the 1-based page number sent upstream.
func (w Window) RequestPage() int {
	return w.Index + 1
}

// RowRange returns the 1-based first and last row numbers on the page, or
// 0, 0 when the page is past the end.
func (w Window) RowRange() (first, last int) {
	if w.Size <= 0 {
		return 0, 0
	}
	first = w.Index*w.Size + 1
	if first > w.Total {
		return 0, 0
	}
	last = first + w.Size - 1
	if last > w.Total {
		last = w.Total
	}
	return first, last
}

// HasNext reports whether a page follows this one.
func (w Window) HasNext() bool {
	return w.Index < w.LastIndex()
}

// HasPrev reports whether a page precedes this one.
func (w Window) HasPrev() bool {
	return w.Index > 0
}

// Clamp validates index and caps it to the last page once Total is known.
func (w Window) Clamp(index int) (int, error) {
	if index < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeIndex, index)
	}
	if w.Total > 0 && index > w.LastIndex() {
		return w.LastIndex(), nil
	}
	return index, nil
}
