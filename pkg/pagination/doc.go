// Package pagination holds the page arithmetic shared by the table and the
// exporter, and a worker pool that fetches a range of pages in parallel.
//
// Page indices are zero-based everywhere in this module; only the wire
// request uses 1-based page numbers.
//
// Example usage:
//
//	w := pagination.Window{Index: 8, Size: 12, Total: 100}
//	w.LastIndex() // 8
//	w.RowRange()  // 97, 100
//
//	bf := pagination.NewBatchFetcher[artwork.Record](pf, pagination.DefaultConfig())
//	pages, err := bf.FetchRange(ctx, 0, 3)
package pagination
