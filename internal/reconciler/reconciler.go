package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/applynow/internal/model"
)

// Result counts what one pass changed.
type Result struct {
	Observed    int
	New         int
	Refreshed   int
	Reactivated int
	Archived    int
	Skipped     int
}

// Reconciler turns a company's observed postings into job rows and
// lifecycle events.
type Reconciler struct {
	store  model.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a Reconciler backed by store.
func New(store model.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Reconcile applies a complete snapshot of company's postings: unseen links
// are inserted with a new event, seen links are refreshed, and stored jobs
// missing from the snapshot are archived with an archived event. The whole
// pass is one transaction, so a failure leaves the store untouched.
func (r *Reconciler) Reconcile(ctx context.Context, company string, postings []model.Posting) (Result, error) {
	return r.run(ctx, company, postings, true)
}

// Upsert applies postings without archiving anything. It is used when the
// observed set is known to be incomplete.
func (r *Reconciler) Upsert(ctx context.Context, company string, postings []model.Posting) (Result, error) {
	return r.run(ctx, company, postings, false)
}

func (r *Reconciler) run(ctx context.Context, company string, postings []model.Posting, archive bool) (Result, error) {
	var res Result
	now := r.now()

	err := r.store.WithTx(ctx, func(tx model.StoreTx) error {
		res = Result{}
		observed := make(map[string]bool, len(postings))

		for _, p := range postings {
			if p.Link == "" {
				res.Skipped++
				r.logger.Warn("skipping posting without link", "company", company, "title", p.Title)
				continue
			}
			if observed[p.Link] {
				continue
			}
			observed[p.Link] = true
			res.Observed++

			if err := r.apply(ctx, tx, company, p, now, &res); err != nil {
				return err
			}
		}

		if !archive {
			return nil
		}
		return r.archiveMissing(ctx, tx, company, observed, &res)
	})
	if err != nil {
		return Result{}, fmt.Errorf("reconciling %s: %w", company, err)
	}

	r.logger.Info("reconciled company",
		"company", company,
		"observed", res.Observed,
		"new", res.New,
		"refreshed", res.Refreshed,
		"reactivated", res.Reactivated,
		"archived", res.Archived,
		"complete", archive,
	)
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, tx model.StoreTx, company string, p model.Posting, now time.Time, res *Result) error {
	job, err := tx.JobByLink(ctx, p.Link)
	switch {
	case err == nil:
		if job.Archived {
			res.Reactivated++
		} else {
			res.Refreshed++
		}
		job.Refresh(p)
		job.Archived = false
		job.LastSeen = now
		return tx.UpdateJob(ctx, job)

	case errors.Is(err, model.ErrNotFound):
		job = &model.Job{
			ID:         r.newID(),
			Link:       p.Link,
			Company:    company,
			Enrichment: model.DefaultEnrichment(),
			LastSeen:   now,
			DateAdded:  now,
		}
		job.Refresh(p)
		if err := tx.InsertJob(ctx, job); err != nil {
			return err
		}
		if _, err := tx.Enqueue(ctx, job.ID, model.EventNew); err != nil {
			return err
		}
		res.New++
		return nil

	default:
		return err
	}
}

func (r *Reconciler) archiveMissing(ctx context.Context, tx model.StoreTx, company string, observed map[string]bool, res *Result) error {
	stored, err := tx.JobsByCompany(ctx, company)
	if err != nil {
		return err
	}
	for i := range stored {
		job := &stored[i]
		if job.Archived || observed[job.Link] {
			continue
		}
		job.Archived = true
		if err := tx.UpdateJob(ctx, job); err != nil {
			return err
		}
		if _, err := tx.Enqueue(ctx, job.ID, model.EventArchived); err != nil {
			return err
		}
		res.Archived++
		r.logger.Debug("archived job", "company", company, "job_id", job.ID, "link", job.Link)
	}
	return nil
}
