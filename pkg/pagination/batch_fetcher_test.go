package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePages serves pages of ints: page i holds i*size .. i*size+size-1.
type fakePages struct {
	size, total int
	failOn      int
	calls       atomic.Int32

	mu   sync.Mutex
	seen []int
}

func (f *fakePages) FetchPage(_ context.Context, pageIndex int) ([]int, int, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, pageIndex)
	f.mu.Unlock()

	if f.failOn > 0 && pageIndex == f.failOn {
		return nil, 0, fmt.Errorf("boom on %d", pageIndex)
	}
	pages := (f.total + f.size - 1) / f.size
	var items []int
	for i := pageIndex * f.size; i < (pageIndex+1)*f.size && i < f.total; i++ {
		items = append(items, i)
	}
	return items, pages, nil
}

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher[int](&fakePages{size: 1, total: 1}, Config{})
	assert.Equal(t, DefaultConfig().MaxConcurrency, bf.config.MaxConcurrency)
	assert.Equal(t, DefaultConfig().Timeout, bf.config.Timeout)
}

func TestFetchRange_AllPages(t *testing.T) {
	f := &fakePages{size: 12, total: 100}
	bf := NewBatchFetcher[int](f, Config{MaxConcurrency: 3})

	pages, err := bf.FetchRange(context.Background(), 0, -1)
	require.NoError(t, err)
	assert.Len(t, pages, 9)

	all := Flatten(pages)
	require.Len(t, all, 100)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, int32(9), f.calls.Load())
}

func TestFetchRange_Subrange(t *testing.T) {
	f := &fakePages{size: 10, total: 100}
	bf := NewBatchFetcher[int](f, Config{MaxConcurrency: 2})

	pages, err := bf.FetchRange(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3, 4}, keys(pages))
	assert.Equal(t, 20, Flatten(pages)[0])
}

func TestFetchRange_SinglePage(t *testing.T) {
	f := &fakePages{size: 12, total: 5}
	bf := NewBatchFetcher[int](f, DefaultConfig())

	pages, err := bf.FetchRange(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestFetchRange_FirstPageFails(t *testing.T) {
	f := &fakePages{size: 12, total: 100, failOn: 3}
	bf := NewBatchFetcher[int](f, DefaultConfig())

	_, err := bf.FetchRange(context.Background(), 3, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page 3")
}

func TestFetchRange_PartialResults(t *testing.T) {
	f := &fakePages{size: 10, total: 100, failOn: 5}
	bf := NewBatchFetcher[int](f, Config{MaxConcurrency: 1})

	pages, err := bf.FetchRange(context.Background(), 0, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partial data")
	assert.Contains(t, pages, 0)
	assert.NotContains(t, pages, 5)
}

func TestFetchRange_NegativeFrom(t *testing.T) {
	bf := NewBatchFetcher[int](&fakePages{size: 1, total: 1}, DefaultConfig())

	_, err := bf.FetchRange(context.Background(), -1, 3)
	assert.True(t, errors.Is(err, ErrNegativeIndex))
}

func keys(m map[int][]int) []int {
	var out []int
	for k := range m {
		out = append(out, k)
	}
	return out
}
