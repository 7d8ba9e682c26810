package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

func TestWait_SpacesSameATS(t *testing.T) {
	l := NewLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	if err := l.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("second request went out after %v, want >= ~100ms", elapsed)
	}
}

func TestWait_SeparateBucketsPerATS(t *testing.T) {
	l := NewLimiter(time.Second, nil)
	ctx := context.Background()

	if err := l.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("greenhouse: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "lever"); err != nil {
		t.Fatalf("lever: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("lever blocked on greenhouse for %v", elapsed)
	}
}

func TestWait_CancelledContext(t *testing.T) {
	l := NewLimiter(5*time.Second, nil)
	if err := l.Wait(context.Background(), "ashby"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "ashby"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestWait_Override(t *testing.T) {
	l := NewLimiter(time.Hour, map[string]time.Duration{"bamboohr": 0})
	ctx := context.Background()

	start := time.Now()
	for i := range 3 {
		if err := l.Wait(ctx, "bamboohr"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero override still waited %v", elapsed)
	}
}

func TestWait_QueuedCallersAreSpaced(t *testing.T) {
	l := NewLimiter(50*time.Millisecond, nil)
	ctx := context.Background()
	if err := l.Wait(ctx, "lever"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Wait(ctx, "lever")
		}()
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("two queued callers finished in %v, want >= ~100ms", elapsed)
	}
}

type countingSource struct{ calls int }

func (s *countingSource) FetchPostings(_ context.Context) ([]model.Posting, error) {
	s.calls++
	return []model.Posting{{Link: "https://example.com/1"}}, nil
}

func TestSource_WaitsThenDelegates(t *testing.T) {
	inner := &countingSource{}
	src := Wrap(inner, NewLimiter(100*time.Millisecond, nil), "greenhouse")
	ctx := context.Background()

	if _, err := src.FetchPostings(ctx); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	start := time.Now()
	got, err := src.FetchPostings(ctx)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("second fetch not limited: %v", elapsed)
	}
	if inner.calls != 2 || len(got) != 1 {
		t.Errorf("calls = %d, postings = %d", inner.calls, len(got))
	}
}

func TestSource_CancelledSkipsFetch(t *testing.T) {
	inner := &countingSource{}
	l := NewLimiter(time.Hour, nil)
	src := Wrap(inner, l, "lever")
	if _, err := src.FetchPostings(context.Background()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.FetchPostings(ctx); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}
