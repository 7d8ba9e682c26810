package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amishk599/applynow/internal/model"
	"github.com/amishk599/applynow/internal/reconciler"
)

// JobLookup reports whether a link is already stored.
type JobLookup interface {
	JobByLink(ctx context.Context, link string) (*model.Job, error)
}

// CompanyCrawler owns one crawl pass for a single company:
// fetch → enrich new links → reconcile.
type CompanyCrawler struct {
	Name       string
	source     model.PostingSource
	enricher   model.Enricher
	jobs       JobLookup
	reconciler *reconciler.Reconciler
	logger     *slog.Logger
}

// NewCompanyCrawler creates a crawler wired with all its dependencies.
func NewCompanyCrawler(
	name string,
	source model.PostingSource,
	enricher model.Enricher,
	jobs JobLookup,
	rec *reconciler.Reconciler,
	logger *slog.Logger,
) *CompanyCrawler {
	return &CompanyCrawler{
		Name:       name,
		source:     source,
		enricher:   enricher,
		jobs:       jobs,
		reconciler: rec,
		logger:     logger,
	}
}

// Crawl runs one pass. A fetch error never archives: postings read before
// the failure are upserted and the error is returned.
func (c *CompanyCrawler) Crawl(ctx context.Context) (reconciler.Result, error) {
	postings, fetchErr := c.source.FetchPostings(ctx)
	if fetchErr != nil && len(postings) == 0 {
		return reconciler.Result{}, fmt.Errorf("crawling %s: %w", c.Name, fetchErr)
	}

	for i := range postings {
		if postings[i].Company == "" {
			postings[i].Company = c.Name
		}
	}

	if err := c.enrichNew(ctx, postings); err != nil {
		return reconciler.Result{}, fmt.Errorf("crawling %s: %w", c.Name, err)
	}

	if fetchErr != nil {
		c.logger.Warn("incomplete crawl, skipping archive",
			"company", c.Name,
			"fetched", len(postings),
			"error", fetchErr,
		)
		res, err := c.reconciler.Upsert(ctx, c.Name, postings)
		if err != nil {
			return res, fmt.Errorf("crawling %s: %w", c.Name, errors.Join(fetchErr, err))
		}
		return res, fmt.Errorf("crawling %s: %w", c.Name, fetchErr)
	}

	res, err := c.reconciler.Reconcile(ctx, c.Name, postings)
	if err != nil {
		return res, fmt.Errorf("crawling %s: %w", c.Name, err)
	}
	return res, nil
}

// enrichNew attaches enrichment to postings whose link is not stored yet.
// Known links keep their stored enrichment.
func (c *CompanyCrawler) enrichNew(ctx context.Context, postings []model.Posting) error {
	enriched := 0
	for i := range postings {
		p := &postings[i]
		if p.Link == "" || p.Enrichment != nil {
			continue
		}
		_, err := c.jobs.JobByLink(ctx, p.Link)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e := c.enricher.Enrich(ctx, enrichmentText(*p))
		e.IsWinnipeg = e.IsWinnipeg || p.IsWinnipeg
		p.Enrichment = &e
		enriched++
	}
	if enriched > 0 {
		c.logger.Debug("enriched postings", "company", c.Name, "count", enriched)
	}
	return nil
}

func enrichmentText(p model.Posting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", p.Company)
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", p.Location)
	}
	if p.JobType != "" {
		fmt.Fprintf(&b, "Type: %s\n", p.JobType)
	}
	b.WriteString("\n")
	b.WriteString(p.Description)
	return b.String()
}
