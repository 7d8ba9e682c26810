package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

// Policy bounds how a board fetch is retried.
type Policy struct {
	// MaxRetries is the number of extra attempts after the first failure.
	MaxRetries int
	// BaseDelay is the wait before the first retry; it doubles per attempt.
	BaseDelay time.Duration
}

// Source retries transient board failures with exponential backoff and jitter.
type Source struct {
	inner  model.PostingSource
	policy Policy
	logger *slog.Logger
}

// Wrap adds retries to inner.
func Wrap(inner model.PostingSource, policy Policy, logger *slog.Logger) *Source {
	return &Source{inner: inner, policy: policy, logger: logger}
}

// FetchPostings repeats the whole fetch while it fails transiently. An
// incomplete snapshot is handed back untouched together with its postings:
// the next crawl cycle is the retry for it.
func (s *Source) FetchPostings(ctx context.Context) ([]model.Posting, error) {
	for attempt := 0; ; attempt++ {
		postings, err := s.inner.FetchPostings(ctx)
		if !transient(err) || attempt >= s.policy.MaxRetries {
			return postings, err
		}

		wait := s.delay(attempt+1, err)
		s.logger.Warn("board fetch failed, retrying",
			"attempt", attempt+1,
			"max_retries", s.policy.MaxRetries,
			"delay", wait,
			"error", err,
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// delay is BaseDelay*2^(attempt-1) with ±30% jitter, unless the server sent
// a Retry-After.
func (s *Source) delay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	d := s.policy.BaseDelay << (attempt - 1)
	jitter := (rand.Float64()*2 - 1) * 0.3 * float64(d)
	return d + time.Duration(jitter)
}

func transient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, model.ErrIncompleteSnapshot),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	// network and DNS failures
	return true
}
