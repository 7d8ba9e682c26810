package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/amishk599/applynow/internal/model"
	"github.com/amishk599/applynow/internal/reconciler"
	"github.com/amishk599/applynow/internal/store"
)

// MockSource returns canned postings and an optional error.
type MockSource struct {
	Postings []model.Posting
	Err      error
}

func (m *MockSource) FetchPostings(_ context.Context) ([]model.Posting, error) {
	out := make([]model.Posting, len(m.Postings))
	copy(out, m.Postings)
	return out, m.Err
}

// CountingEnricher records the texts it was asked to enrich.
type CountingEnricher struct {
	Texts []string
}

func (e *CountingEnricher) Enrich(_ context.Context, text string) model.Enrichment {
	e.Texts = append(e.Texts, text)
	out := model.DefaultEnrichment()
	out.Seniority = model.SeniorityMid
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makePostings(links ...string) []model.Posting {
	ps := make([]model.Posting, len(links))
	for i, l := range links {
		ps[i] = model.Posting{
			Link:        "https://example.com/" + l,
			Title:       "Engineer " + l,
			Location:    "Winnipeg, MB",
			Description: "Build things.",
			IsWinnipeg:  true,
		}
	}
	return ps
}

func newCrawler(s *store.SQLiteStore, src model.PostingSource, enr model.Enricher) *CompanyCrawler {
	return NewCompanyCrawler("Acme", src, enr, s, reconciler.New(s, discardLogger()), discardLogger())
}

func TestCrawl_CompleteSnapshotReconciles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	src := &MockSource{Postings: makePostings("1", "2")}

	res, err := newCrawler(s, src, &CountingEnricher{}).Crawl(ctx)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.New != 2 {
		t.Errorf("new = %d, want 2", res.New)
	}

	j, err := s.JobByLink(ctx, "https://example.com/1")
	if err != nil {
		t.Fatalf("JobByLink: %v", err)
	}
	if j.Company != "Acme" {
		t.Errorf("company = %q, want Acme", j.Company)
	}
	if j.Seniority != model.SeniorityMid {
		t.Errorf("seniority = %q, want enrichment value", j.Seniority)
	}
	if !j.IsWinnipeg {
		t.Error("adapter Winnipeg flag lost")
	}
}

func TestCrawl_EnrichesOnlyNewLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	enr := &CountingEnricher{}

	src := &MockSource{Postings: makePostings("1", "2")}
	if _, err := newCrawler(s, src, enr).Crawl(ctx); err != nil {
		t.Fatalf("first Crawl: %v", err)
	}
	src.Postings = makePostings("1", "2", "3")
	if _, err := newCrawler(s, src, enr).Crawl(ctx); err != nil {
		t.Fatalf("second Crawl: %v", err)
	}

	if got := len(enr.Texts); got != 3 {
		t.Errorf("enrich calls = %d, want 3", got)
	}
}

func TestCrawl_PartialFailureDoesNotArchive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := &MockSource{Postings: makePostings("1", "2", "3")}
	if _, err := newCrawler(s, src, &CountingEnricher{}).Crawl(ctx); err != nil {
		t.Fatalf("first Crawl: %v", err)
	}

	// Detail pages for 2 and 3 fail; only 1 and a new 4 come back.
	src.Postings = makePostings("1", "4")
	src.Err = fmt.Errorf("fetching details: %w", model.ErrIncompleteSnapshot)
	res, err := newCrawler(s, src, &CountingEnricher{}).Crawl(ctx)
	if !errors.Is(err, model.ErrIncompleteSnapshot) {
		t.Fatalf("Crawl err = %v, want ErrIncompleteSnapshot", err)
	}
	if res.New != 1 || res.Archived != 0 {
		t.Errorf("result = %+v, want 1 new and nothing archived", res)
	}

	active, err := s.ListJobs(ctx, false)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(active) != 4 {
		t.Errorf("active jobs = %d, want 4", len(active))
	}
}

func TestCrawl_FetchErrorTouchesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := &MockSource{Postings: makePostings("1")}
	if _, err := newCrawler(s, src, &CountingEnricher{}).Crawl(ctx); err != nil {
		t.Fatalf("first Crawl: %v", err)
	}

	src.Postings = nil
	src.Err = errors.New("network down")
	if _, err := newCrawler(s, src, &CountingEnricher{}).Crawl(ctx); err == nil {
		t.Fatal("expected error, got nil")
	}

	j, err := s.JobByLink(ctx, "https://example.com/1")
	if err != nil {
		t.Fatalf("JobByLink: %v", err)
	}
	if j.Archived {
		t.Error("job archived after failed fetch")
	}
}

func TestCrawl_EmptyCompleteSnapshotArchivesAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := &MockSource{Postings: makePostings("1", "2")}
	if _, err := newCrawler(s, src, &CountingEnricher{}).Crawl(ctx); err != nil {
		t.Fatalf("first Crawl: %v", err)
	}

	src.Postings = nil
	res, err := newCrawler(s, src, &CountingEnricher{}).Crawl(ctx)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if res.Archived != 2 {
		t.Errorf("archived = %d, want 2", res.Archived)
	}
}
