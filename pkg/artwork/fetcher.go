package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/artwork-table/pkg/logging"
	"github.com/rs/zerolog"
)

// ListPath is the listing endpoint relative to the API root.
const ListPath = "/artworks"

// Getter is the part of client.Client the fetcher needs.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
}

// Fetcher loads one page of records per call.
type Fetcher struct {
	client Getter
	logger zerolog.Logger
}

// NewFetcher creates a fetcher on top of an API client.
func NewFetcher(c Getter) *Fetcher {
	return &Fetcher{
		client: c,
		logger: logging.NewLogger(logging.ComponentFetcher),
	}
}

// PageQuery builds the listing query for a zero-based page index. The
// endpoint numbers pages from 1.
func PageQuery(pageIndex, pageSize int) url.Values {
	return url.Values{
		"page":   {strconv.Itoa(pageIndex + 1)},
		"limit":  {strconv.Itoa(pageSize)},
		"fields": {strings.Join(Fields, ",")},
	}
}

// FetchPage issues one listing request. Every failure is a *FetchError.
func (f *Fetcher) FetchPage(ctx context.Context, pageIndex, pageSize int) (Page, error) {
	if pageIndex < 0 || pageSize <= 0 {
		return Page{}, &FetchError{
			PageIndex: pageIndex,
			PageSize:  pageSize,
			Message:   "Invalid page request.",
			Err:       fmt.Errorf("%w: index %d, size %d", ErrInvalidPage, pageIndex, pageSize),
		}
	}

	fail := func(status int, msg string, err error) (Page, error) {
		f.logger.Error().
			Err(err).
			Int("page_index", pageIndex).
			Int("page_size", pageSize).
			Int("status_code", status).
			Msg("Page fetch failed")
		return Page{}, &FetchError{
			PageIndex:  pageIndex,
			PageSize:   pageSize,
			StatusCode: status,
			Message:    msg,
			Err:        err,
		}
	}

	resp, err := f.client.Get(ctx, ListPath, PageQuery(pageIndex, pageSize))
	if err != nil {
		return fail(statusOf(err), userMessage(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, "The collection API response was cut off.", fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, statusMessage(resp.StatusCode), fmt.Errorf("unexpected status %s", resp.Status))
	}

	lr, err := decodeList(body)
	if err != nil {
		return fail(resp.StatusCode, "The collection API sent a response that could not be read.", fmt.Errorf("decode listing: %w", err))
	}

	total := lr.Pagination.Total
	if total < 0 {
		total = 0
	}

	f.logger.Debug().
		Int("page_index", pageIndex).
		Int("page_size", pageSize).
		Int("records", len(lr.Data)).
		Int("total", total).
		Msg("Page fetched")

	return Page{
		Index:   pageIndex,
		Size:    pageSize,
		Records: lr.Data,
		Total:   total,
	}, nil
}

// PageFetcher adapts a Fetcher with a fixed page size to the parallel
// batch fetcher.
type PageFetcher struct {
	Fetcher  *Fetcher
	PageSize int
}

// FetchPage returns the records of a page and the total page count.
func (p PageFetcher) FetchPage(ctx context.Context, pageIndex int) ([]Record, int, error) {
	page, err := p.Fetcher.FetchPage(ctx, pageIndex, p.PageSize)
	if err != nil {
		return nil, 0, err
	}
	pages := 0
	if p.PageSize > 0 {
		pages = (page.Total + p.PageSize - 1) / p.PageSize
	}
	return page.Records, pages, nil
}
