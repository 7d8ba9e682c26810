package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/amishk599/applynow/internal/model"
)

// newTestPostgres connects to APPLYNOW_TEST_POSTGRES_URL and clears the tables.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("APPLYNOW_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("APPLYNOW_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.pool.Exec(ctx, `TRUNCATE jobs, notification_events, alert_filters`); err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
	return s
}

func TestPostgresJobsAndQueue(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	j := testJob("job-1", "https://example.com/jobs/1", "Acme")
	j.Technologies = []string{"Go"}
	j.SalaryMax = intPtr(100000)
	if err := s.WithTx(ctx, func(tx model.StoreTx) error {
		if err := tx.InsertJob(ctx, j); err != nil {
			return err
		}
		_, err := tx.Enqueue(ctx, j.ID, model.EventNew)
		return err
	}); err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	got, err := s.JobByLink(ctx, j.Link)
	if err != nil {
		t.Fatalf("JobByLink: %v", err)
	}
	if got.SalaryMax == nil || *got.SalaryMax != 100000 || got.SalaryMin != nil {
		t.Errorf("salary = %v / %v", got.SalaryMin, got.SalaryMax)
	}
	if len(got.Technologies) != 1 {
		t.Errorf("Technologies = %v", got.Technologies)
	}

	inserted, err := s.Enqueue(ctx, j.ID, model.EventNew)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if inserted {
		t.Error("duplicate unsent event inserted")
	}

	if err := s.MarkSent(ctx, []string{j.ID}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	pending, err := s.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Pending = %+v, want empty", pending)
	}

	if _, err := s.JobByID(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("JobByID err = %v, want ErrNotFound", err)
	}
}

func TestPostgresAlertFilters(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	f := model.DefaultAlertFilter(9)
	f.Seniorities = []string{"senior"}
	if err := s.SaveAlertFilter(ctx, &f); err != nil {
		t.Fatalf("SaveAlertFilter: %v", err)
	}

	filters, err := s.ActiveAlertFilters(ctx)
	if err != nil {
		t.Fatalf("ActiveAlertFilters: %v", err)
	}
	if len(filters) != 1 || len(filters[0].Seniorities) != 1 {
		t.Fatalf("ActiveAlertFilters = %+v", filters)
	}
}
