package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/applynow/internal/config"
	"github.com/amishk599/applynow/internal/scheduler"
)

var (
	crawlCompany string
	crawlDryRun  bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl pass and exit",
	Long:  "Crawls every enabled company once (or only --company) and reconciles the results. --dry-run reconciles into an in-memory store so nothing is persisted.",
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlCompany, "company", "", "crawl only the named company")
	crawlCmd.Flags().BoolVar(&crawlDryRun, "dry-run", false, "use an in-memory store; nothing is persisted")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := cfg.Database
	dbPath := ""
	if crawlDryRun {
		logger.Info("dry-run mode enabled, results are not persisted")
		db = config.DatabaseConfig{Driver: "sqlite"}
		dbPath = ":memory:"
	}
	st, err := openStore(ctx, db, dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	httpClient := &http.Client{Timeout: cfg.Crawl.HTTPTimeout}
	crawlers, err := buildCrawlers(cfg, st, setupEnricher(cfg.Enrichment, logger), httpClient, crawlCompany, logger)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(crawlers, cfg.Crawl.Schedule, cfg.Crawl.CompanyDelay, logger)
	sum := sched.RunCycle(ctx)

	fmt.Printf("\nObserved %d postings: %d new, %d refreshed, %d reactivated, %d archived, %d skipped; %d companies failed\n",
		sum.Observed, sum.New, sum.Refreshed, sum.Reactivated, sum.Archived, sum.Skipped, sum.Failed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d companies failed", sum.Failed, len(crawlers))
	}
	return nil
}
