package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/applynow/internal/dispatcher"
	"github.com/amishk599/applynow/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the crawl scheduler and dispatcher",
	Long:  "Runs the crawl scheduler and the notification dispatcher together; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("config loaded",
		"database", cfg.Database.Driver,
		"schedule", cfg.Crawl.Schedule,
		"companies", len(cfg.Companies),
		"dispatch_interval", cfg.Dispatch.Interval.String(),
		"notifier", cfg.Notification.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database, "")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	httpClient := &http.Client{Timeout: cfg.Crawl.HTTPTimeout}

	n, closeNotifier, err := setupNotifier(cfg, httpClient, logger)
	if err != nil {
		return fmt.Errorf("setting up notifier: %w", err)
	}
	defer closeNotifier()

	l, closeLease, err := setupLease(ctx, cfg.Dispatch.Lease, logger)
	if err != nil {
		return fmt.Errorf("setting up lease: %w", err)
	}
	defer closeLease()

	crawlers, err := buildCrawlers(cfg, st, setupEnricher(cfg.Enrichment, logger), httpClient, "", logger)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(crawlers, cfg.Crawl.Schedule, cfg.Crawl.CompanyDelay, logger)
	disp := dispatcher.New(st, n, l, cfg.Dispatch.Interval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return disp.Run(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("goodbye")
	return nil
}
