package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/applynow/internal/crawler"
	"github.com/amishk599/applynow/internal/enrich"
	"github.com/amishk599/applynow/internal/model"
	"github.com/amishk599/applynow/internal/reconciler"
	"github.com/amishk599/applynow/internal/store"
)

// --- Mock implementations ---

type CountingSource struct {
	calls    atomic.Int32
	postings []model.Posting
}

func (f *CountingSource) FetchPostings(_ context.Context) ([]model.Posting, error) {
	f.calls.Add(1)
	return f.postings, nil
}

type ErrorSource struct {
	calls atomic.Int32
}

func (f *ErrorSource) FetchPostings(_ context.Context) ([]model.Posting, error) {
	f.calls.Add(1)
	return nil, errors.New("fetch failed")
}

// OrderRecordingSource appends its id to recorder.order on each call.
type OrderRecordingSource struct {
	id       string
	recorder *orderRecorder
}

type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (f *OrderRecordingSource) FetchPostings(_ context.Context) ([]model.Posting, error) {
	f.recorder.mu.Lock()
	f.recorder.order = append(f.recorder.order, f.id)
	f.recorder.mu.Unlock()
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeCrawler(st *store.SQLiteStore, name string, source model.PostingSource) *crawler.CompanyCrawler {
	logger := discardLogger()
	return crawler.NewCompanyCrawler(name, source, enrich.NewNopEnricher(), st, reconciler.New(st, logger), logger)
}

// --- Tests ---

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"@every 1h", false},
		{"*/30 * * * *", false},
		{"@hourly", false},
		{"every hour", true},
		{"", true},
	}
	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			err := ValidateSpec(tc.spec)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateSpec(%q) error = %v, wantErr %v", tc.spec, err, tc.wantErr)
			}
		})
	}
}

func TestRunCycle_OrderPreserved(t *testing.T) {
	st := newTestStore(t)
	rec := &orderRecorder{}
	s := NewScheduler([]*crawler.CompanyCrawler{
		makeCrawler(st, "co1", &OrderRecordingSource{id: "co1", recorder: rec}),
		makeCrawler(st, "co2", &OrderRecordingSource{id: "co2", recorder: rec}),
		makeCrawler(st, "co3", &OrderRecordingSource{id: "co3", recorder: rec}),
	}, "@every 1h", 0, discardLogger())

	s.RunCycle(context.Background())

	want := []string{"co1", "co2", "co3"}
	if len(rec.order) != len(want) {
		t.Fatalf("crawl order = %v, want %v", rec.order, want)
	}
	for i := range want {
		if rec.order[i] != want[i] {
			t.Fatalf("crawl order = %v, want %v", rec.order, want)
		}
	}
}

func TestRunCycle_OneFailureOthersStillRun(t *testing.T) {
	st := newTestStore(t)
	errSource := &ErrorSource{}
	okSource := &CountingSource{postings: []model.Posting{
		{Link: "https://example.com/1", Title: "Engineer"},
		{Link: "https://example.com/2", Title: "Designer"},
	}}
	s := NewScheduler([]*crawler.CompanyCrawler{
		makeCrawler(st, "failing", errSource),
		makeCrawler(st, "healthy", okSource),
	}, "@every 1h", 0, discardLogger())

	sum := s.RunCycle(context.Background())

	if errSource.calls.Load() != 1 || okSource.calls.Load() != 1 {
		t.Fatalf("expected one call each, got failing=%d healthy=%d", errSource.calls.Load(), okSource.calls.Load())
	}
	if sum.Failed != 1 {
		t.Errorf("Failed = %d, want 1", sum.Failed)
	}
	if sum.New != 2 {
		t.Errorf("New = %d, want 2", sum.New)
	}

	pending, err := st.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 pending events, got %d", len(pending))
	}
}

func TestRunCycle_CancelledContextStops(t *testing.T) {
	st := newTestStore(t)
	first := &CountingSource{}
	second := &CountingSource{}
	s := NewScheduler([]*crawler.CompanyCrawler{
		makeCrawler(st, "co1", first),
		makeCrawler(st, "co2", second),
	}, "@every 1h", time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunCycle(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not stop during the company delay")
	}
	if second.calls.Load() != 0 {
		t.Error("second company should not be crawled after cancel")
	}
}

func TestRun_CancelReturnsPromptly(t *testing.T) {
	st := newTestStore(t)
	source := &CountingSource{}
	s := NewScheduler([]*crawler.CompanyCrawler{makeCrawler(st, "testco", source)}, "@every 1h", 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}

	if got := source.calls.Load(); got != 1 {
		t.Errorf("expected one immediate cycle, got %d calls", got)
	}
}

func TestRun_FiresOnSchedule(t *testing.T) {
	st := newTestStore(t)
	source := &CountingSource{}
	s := NewScheduler([]*crawler.CompanyCrawler{makeCrawler(st, "co1", source)}, "@every 1s", 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(1500 * time.Millisecond)
	cancel()
	<-done

	if got := source.calls.Load(); got < 2 {
		t.Errorf("source calls = %d, want >= 2", got)
	}
}

func TestRun_InvalidSpec(t *testing.T) {
	s := NewScheduler(nil, "not a schedule", 0, discardLogger())
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
