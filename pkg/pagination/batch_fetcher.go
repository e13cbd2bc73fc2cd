package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the number of workers. Keep it low: the public
	// API allows 60 requests per minute.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultConfig returns a configuration that stays polite to the API.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher fetches a single zero-based page and reports the total page
// count.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, pageIndex int) (items []T, totalPages int, err error)
}

// PageResult is the outcome of one page fetch.
type PageResult[T any] struct {
	PageIndex int
	Items     []T
	Error     error
}

// BatchFetcher fetches ranges of pages with a worker pool.
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	def := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "batch-fetcher").Logger(),
	}
}

// FetchRange fetches pages from..to inclusive. A negative to means "through
// the last page". The first page is fetched alone to learn the page count;
// the rest go through the worker pool. On failure the pages fetched so far
// are returned along with the error.
func (bf *BatchFetcher[T]) FetchRange(ctx context.Context, from, to int) (map[int][]T, error) {
	if from < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeIndex, from)
	}
	start := time.Now()

	firstCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	firstItems, totalPages, err := bf.fetcher.FetchPage(firstCtx, from)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", from, err)
	}

	last := totalPages - 1
	if to >= 0 && to < last {
		last = to
	}

	results := map[int][]T{from: firstItems}
	if last <= from {
		bf.logger.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return results, nil
	}

	bf.logger.Info().
		Int("from", from).
		Int("to", last).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	ctx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	pageQueue := make(chan int)
	pageResults := make(chan PageResult[T])

	go func() {
		defer close(pageQueue)
		for page := from + 1; page <= last; page++ {
			select {
			case pageQueue <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	var firstErr error
	for result := range pageResults {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fetch page %d: %w", result.PageIndex, result.Error)
				// stop handing out pages; in-flight ones drain
				cancelAll()
			}
			continue
		}
		results[result.PageIndex] = result.Items
	}

	wanted := last - from + 1
	if firstErr != nil {
		bf.logger.Warn().
			Err(firstErr).
			Int("fetched_pages", len(results)).
			Int("wanted_pages", wanted).
			Msg("Batch fetch failed - returning partial results")
		return results, fmt.Errorf("partial data (%d/%d pages): %w", len(results), wanted, firstErr)
	}

	bf.logger.Info().
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

func (bf *BatchFetcher[T]) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for pageIndex := range pageQueue {
		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		items, _, err := bf.fetcher.FetchPage(pageCtx, pageIndex)
		cancel()

		// results is drained until closed, so this send cannot block forever
		results <- PageResult[T]{PageIndex: pageIndex, Items: items, Error: err}
		if err == nil {
			processed++
		}
	}

	bf.logger.Debug().
		Int("worker_id", workerID).
		Int("pages_processed", processed).
		Msg("Worker completed")
}

// Flatten concatenates fetched pages in page order.
func Flatten[T any](pages map[int][]T) []T {
	indices := make([]int, 0, len(pages))
	for i := range pages {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var out []T
	for _, i := range indices {
		out = append(out, pages[i]...)
	}
	return out
}
