package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/applynow/internal/crawler"
	"github.com/amishk599/applynow/internal/reconciler"
)

// Scheduler runs a crawl cycle over every company on a cron schedule.
// Companies are crawled sequentially; one failing company never affects
// the others.
type Scheduler struct {
	crawlers     []*crawler.CompanyCrawler
	spec         string
	companyDelay time.Duration
	logger       *slog.Logger
}

// NewScheduler creates a scheduler firing on spec, a standard cron
// expression or descriptor such as "@every 1h". companyDelay is the
// pause between two companies of the same cycle.
func NewScheduler(crawlers []*crawler.CompanyCrawler, spec string, companyDelay time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		crawlers:     crawlers,
		spec:         spec,
		companyDelay: companyDelay,
		logger:       logger,
	}
}

// ValidateSpec reports whether spec is a schedule the scheduler accepts.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid crawl schedule %q: %w", spec, err)
	}
	return nil
}

// Run runs one immediate cycle, then one per schedule firing. A firing that
// lands while a cycle is still running is skipped. It returns nil when ctx
// is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	c := cron.New(cron.WithLogger(cl))
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(func() {
		s.RunCycle(ctx)
	}))
	if _, err := c.AddJob(s.spec, job); err != nil {
		return fmt.Errorf("scheduling crawl %q: %w", s.spec, err)
	}

	s.logger.Info("starting scheduler",
		"schedule", s.spec,
		"companies", len(s.crawlers),
	)
	c.Start()
	job.Run()

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

// Summary totals one crawl cycle.
type Summary struct {
	reconciler.Result
	Failed int
}

// RunCycle crawls every company once, pausing companyDelay between them.
func (s *Scheduler) RunCycle(ctx context.Context) Summary {
	var sum Summary
	start := time.Now()
	for i, c := range s.crawlers {
		if ctx.Err() != nil {
			break
		}

		res, err := c.Crawl(ctx)
		sum.add(res)
		if err != nil {
			sum.Failed++
			s.logger.Error("crawl failed",
				"company", c.Name,
				"error", err,
			)
		}

		if i < len(s.crawlers)-1 && s.companyDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.companyDelay):
			}
		}
	}

	s.logger.Info("crawl cycle complete",
		"companies", len(s.crawlers),
		"failed", sum.Failed,
		"new", sum.New,
		"archived", sum.Archived,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return sum
}

func (s *Summary) add(r reconciler.Result) {
	s.Observed += r.Observed
	s.New += r.New
	s.Refreshed += r.Refreshed
	s.Reactivated += r.Reactivated
	s.Archived += r.Archived
	s.Skipped += r.Skipped
}

// cronLogger routes robfig/cron's logging onto slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
