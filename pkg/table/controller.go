package table

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/logging"
	"github.com/Sternrassler/artwork-table/pkg/selection"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidCount is returned for a negative bulk-select count.
	ErrInvalidCount = errors.New("bulk-select count must not be negative")

	// ErrBulkCountExceeded is returned when the count is larger than the
	// number of unselected rows on the current page.
	ErrBulkCountExceeded = errors.New("bulk-select count exceeds unselected rows on this page")

	// ErrInvalidPageSize is returned by NewController for sizes below 1.
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// Fetcher loads one page of records.
type Fetcher interface {
	FetchPage(ctx context.Context, pageIndex, pageSize int) (artwork.Page, error)
}

// Controller owns the table state. All mutation goes through its methods;
// it is safe for concurrent use. Fetches run without holding the lock, and
// a load is applied only if no newer load was started meanwhile.
type Controller struct {
	mu sync.Mutex

	fetcher    Fetcher
	state      PageState
	rows       []artwork.Record
	loaded     bool
	selection  *selection.Tracker
	pending    int
	generation uint64

	logger zerolog.Logger
}

// NewController creates a controller on page 0. Nothing is fetched until
// Load is called.
func NewController(fetcher Fetcher, pageSize int) (*Controller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}
	return &Controller{
		fetcher:   fetcher,
		state:     PageState{Size: pageSize},
		selection: selection.NewTracker(),
		logger:    logging.NewLogger(logging.ComponentTable),
	}, nil
}

// WithLogger replaces the controller logger, e.g. to tag a session.
func (c *Controller) WithLogger(l zerolog.Logger) *Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Loaded reports whether any page load has completed, successfully or not.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded || c.state.Err != ""
}

// Load fetches the current page.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	index := c.state.Index
	c.mu.Unlock()
	return c.load(ctx, index)
}

// GoTo moves to a page and fetches it. Negative indices are rejected;
// indices past the last known page are clamped to it.
func (c *Controller) GoTo(ctx context.Context, index int) error {
	c.mu.Lock()
	clamped, err := c.state.window().Clamp(index)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.load(ctx, clamped)
}

// Next moves one page forward, staying on the last page.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	index := c.state.Index + 1
	c.mu.Unlock()
	return c.GoTo(ctx, index)
}

// Prev moves one page back, staying on the first page.
func (c *Controller) Prev(ctx context.Context) error {
	c.mu.Lock()
	index := c.state.Index - 1
	c.mu.Unlock()
	if index < 0 {
		index = 0
	}
	return c.GoTo(ctx, index)
}

// Retry re-issues the load of the current page with the same size.
func (c *Controller) Retry(ctx context.Context) error {
	c.logger.Info().Msg("Retrying page load")
	return c.Load(ctx)
}

func (c *Controller) load(ctx context.Context, index int) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	if index != c.state.Index {
		c.pending = 0
	}
	c.state.Index = index
	c.state.Loading = true
	size := c.state.Size
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, index, size)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		pageLoadsTotal.WithLabelValues("superseded").Inc()
		c.logger.Debug().
			Int("page_index", index).
			Msg("Dropping superseded page result")
		return nil
	}

	c.state.Loading = false

	if err != nil {
		c.rows = nil
		c.state.Err = failureMessage(err)
		pageLoadsTotal.WithLabelValues("error").Inc()
		c.logger.Error().
			Err(err).
			Int("page_index", index).
			Int("page_size", size).
			Msg("Page load failed")
		return err
	}

	c.rows = page.Records
	c.state.Total = page.Total
	c.state.Err = ""
	c.loaded = true
	pageLoadsTotal.WithLabelValues("ok").Inc()

	c.logger.Info().
		Int("page_index", index).
		Int("page_size", size).
		Int("rows", len(page.Records)).
		Int("total", page.Total).
		Msg("Page loaded")

	return nil
}

func failureMessage(err error) string {
	var fe *artwork.FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}

func (c *Controller) rowIDs() []int64 {
	return artwork.IDs(c.rows)
}

// ToggleRows applies the checked identifiers of the visible page to the
// selection. Identifiers of other pages are untouched.
func (c *Controller) ToggleRows(checked []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added, removed := c.selection.Reconcile(c.rowIDs(), checked)
	selectionChangesTotal.WithLabelValues("toggle_add").Add(float64(added))
	selectionChangesTotal.WithLabelValues("toggle_remove").Add(float64(removed))

	c.logger.Debug().
		Int("added", added).
		Int("removed", removed).
		Int("selected", c.selection.Len()).
		Msg("Selection toggled")
}

// SetPendingCount stores the bulk-select count typed by the user. It must
// not exceed the unselected rows on the current page.
func (c *Controller) SetPendingCount(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	if available := len(c.selection.Unselected(c.rowIDs())); n > available {
		bulkRejectedTotal.Inc()
		c.logger.Warn().
			Int("count", n).
			Int("available", available).
			Msg("Bulk-select count rejected")
		return fmt.Errorf("%w: %d > %d", ErrBulkCountExceeded, n, available)
	}
	c.pending = n
	return nil
}

// ApplyBulkSelect selects the first pending-count unselected rows of the
// current page and resets the pending count. It returns the number added.
func (c *Controller) ApplyBulkSelect() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := c.selection.BulkSelect(c.rowIDs(), c.pending)
	c.pending = 0
	selectionChangesTotal.WithLabelValues("bulk").Add(float64(added))

	c.logger.Debug().
		Int("added", added).
		Int("selected", c.selection.Len()).
		Msg("Bulk selection applied")
	return added
}

// BulkSelect is SetPendingCount followed by ApplyBulkSelect.
func (c *Controller) BulkSelect(n int) (int, error) {
	if err := c.SetPendingCount(n); err != nil {
		return 0, err
	}
	return c.ApplyBulkSelect(), nil
}

// ClearSelection deselects everything on every page.
func (c *Controller) ClearSelection() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.selection.Clear()
	selectionChangesTotal.WithLabelValues("clear").Add(float64(n))
	return n
}

// SelectedIDs returns every selected identifier in ascending order.
func (c *Controller) SelectedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.IDs()
}

// State returns the paging state.
func (c *Controller) State() PageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the observable table state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

func (c *Controller) status() Status {
	switch {
	case c.state.Loading:
		return StatusLoading
	case c.state.Err != "":
		return StatusError
	case c.loaded:
		return StatusReady
	default:
		return StatusLoading
	}
}

// Snapshot returns everything needed to render the table.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]Row, len(c.rows))
	selectedOnPage := 0
	for i, r := range c.rows {
		sel := c.selection.Contains(r.ID)
		if sel {
			selectedOnPage++
		}
		rows[i] = Row{Record: r, Selected: sel}
	}

	w := c.state.window()
	first, last := w.RowRange()

	return View{
		Status:       c.status(),
		Page:         c.state,
		Rows:         rows,
		Error:        c.state.Err,
		PendingCount: c.pending,
		Available:    len(c.rows) - selectedOnPage,
		Summary: Summary{
			TotalRecords:   c.state.Total,
			PageIndex:      c.state.Index,
			PageNumber:     c.state.Index + 1,
			PageCount:      w.PageCount(),
			LastIndex:      w.LastIndex(),
			PageSize:       c.state.Size,
			FirstRow:       first,
			LastRow:        last,
			SelectedCount:  c.selection.Len(),
			SelectedOnPage: selectedOnPage,
			HasNext:        w.HasNext(),
			HasPrev:        w.HasPrev(),
		},
	}
}
