package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by store lookups that match no row.
var ErrNotFound = errors.New("not found")

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ErrIncompleteSnapshot marks a fetch that returned only part of a company's
// postings. Callers must not treat the result as the full listing.
var ErrIncompleteSnapshot = errors.New("incomplete snapshot")
