package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedSource returns the outcome scripted for each call number.
type scriptedSource struct {
	calls int
	next  func(call int) ([]model.Posting, error)
}

func (s *scriptedSource) FetchPostings(_ context.Context) ([]model.Posting, error) {
	s.calls++
	return s.next(s.calls)
}

func fastPolicy() Policy {
	return Policy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond}
}

func TestFetchPostings(t *testing.T) {
	unavailable := &model.HTTPError{StatusCode: 503, Err: errors.New("unavailable")}

	tests := []struct {
		name      string
		next      func(call int) ([]model.Posting, error)
		wantCalls int
		wantErr   bool
		wantLen   int
	}{
		{
			name:      "first attempt succeeds",
			next:      func(int) ([]model.Posting, error) { return []model.Posting{{Link: "a"}}, nil },
			wantCalls: 1,
			wantLen:   1,
		},
		{
			name: "5xx then success",
			next: func(call int) ([]model.Posting, error) {
				if call == 1 {
					return nil, unavailable
				}
				return []model.Posting{{Link: "a"}, {Link: "b"}}, nil
			},
			wantCalls: 2,
			wantLen:   2,
		},
		{
			name: "429 is retried",
			next: func(call int) ([]model.Posting, error) {
				if call == 1 {
					return nil, &model.HTTPError{StatusCode: 429, RetryAfter: 5 * time.Millisecond}
				}
				return nil, nil
			},
			wantCalls: 2,
		},
		{
			name:      "network error is retried until exhausted",
			next:      func(int) ([]model.Posting, error) { return nil, errors.New("connection reset") },
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:      "404 is not retried",
			next:      func(int) ([]model.Posting, error) { return nil, &model.HTTPError{StatusCode: 404} },
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name: "incomplete snapshot passes through with postings",
			next: func(int) ([]model.Posting, error) {
				return []model.Posting{{Link: "a"}}, fmt.Errorf("1 detail failed: %w", model.ErrIncompleteSnapshot)
			},
			wantCalls: 1,
			wantErr:   true,
			wantLen:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &scriptedSource{next: tt.next}
			got, err := Wrap(inner, fastPolicy(), discardLogger()).FetchPostings(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if inner.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", inner.calls, tt.wantCalls)
			}
			if len(got) != tt.wantLen {
				t.Errorf("postings = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestFetchPostings_ZeroRetries(t *testing.T) {
	inner := &scriptedSource{next: func(int) ([]model.Posting, error) {
		return nil, &model.HTTPError{StatusCode: 500}
	}}
	_, err := Wrap(inner, Policy{BaseDelay: time.Hour}, discardLogger()).FetchPostings(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestFetchPostings_CancelledDuringBackoff(t *testing.T) {
	inner := &scriptedSource{next: func(int) ([]model.Posting, error) {
		return nil, &model.HTTPError{StatusCode: 500}
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Wrap(inner, Policy{MaxRetries: 2, BaseDelay: time.Second}, discardLogger()).FetchPostings(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestDelay(t *testing.T) {
	s := Wrap(nil, Policy{MaxRetries: 3, BaseDelay: time.Second}, discardLogger())

	if got := s.delay(1, &model.HTTPError{StatusCode: 429, RetryAfter: 3 * time.Second}); got != 3*time.Second {
		t.Errorf("Retry-After not honoured: %v", got)
	}

	for attempt, base := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second} {
		got := s.delay(attempt, errors.New("boom"))
		lo, hi := time.Duration(float64(base)*0.7), time.Duration(float64(base)*1.3)
		if got < lo || got > hi {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, got, lo, hi)
		}
	}
}
