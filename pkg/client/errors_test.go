package client

import (
	"errors"
	"io"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 503, ErrorClass: ErrorClassServer, Message: "503 Service Unavailable"}
	want := "artic server error (status 503): 503 Service Unavailable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: io.ErrUnexpectedEOF}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("APIError should unwrap to its cause")
	}
}
