package artwork

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/artwork-table/pkg/client"
)

// ErrInvalidPage is returned for a negative page index or non-positive size.
var ErrInvalidPage = errors.New("invalid page request")

// FetchError is the single failure kind of a page load. Message is meant
// for the person looking at the table.
type FetchError struct {
	PageIndex  int
	PageSize   int
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch page %d (size %d): %s: %v", e.PageIndex, e.PageSize, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch page %d (size %d): %s", e.PageIndex, e.PageSize, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// userMessage turns a transport failure into something readable.
func userMessage(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrRateLimited):
		return "Too many requests to the collection API. Please wait a minute and retry."
	case errors.As(err, &apiErr) && apiErr.StatusCode > 0:
		return statusMessage(apiErr.StatusCode)
	case errors.Is(err, client.ErrContextCancelled), errors.Is(err, context.Canceled):
		return "The request was cancelled."
	default:
		return "Could not reach the collection API. Check your connection and retry."
	}
}

func statusMessage(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "Too many requests to the collection API. Please wait a minute and retry."
	case status >= 500:
		return fmt.Sprintf("The collection API is unavailable right now (HTTP %d).", status)
	default:
		return fmt.Sprintf("The collection API rejected the request (HTTP %d).", status)
	}
}

// statusOf returns the upstream status carried by err, or 0.
func statusOf(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
