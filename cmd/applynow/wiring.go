package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/applynow/internal/adapter"
	"github.com/amishk599/applynow/internal/config"
	"github.com/amishk599/applynow/internal/crawler"
	"github.com/amishk599/applynow/internal/enrich"
	"github.com/amishk599/applynow/internal/lease"
	"github.com/amishk599/applynow/internal/model"
	"github.com/amishk599/applynow/internal/notifier"
	"github.com/amishk599/applynow/internal/ratelimit"
	"github.com/amishk599/applynow/internal/reconciler"
	"github.com/amishk599/applynow/internal/retry"
	"github.com/amishk599/applynow/internal/store"
)

const natsConnectTimeout = 5 * time.Second

// openStore opens the configured backend. dbPath overrides the sqlite path
// when non-empty (":memory:" for dry runs).
func openStore(ctx context.Context, db config.DatabaseConfig, dbPath string) (model.Store, error) {
	switch db.Driver {
	case "postgres":
		return store.NewPostgresStore(ctx, db.URL)
	default:
		if dbPath == "" {
			dbPath = db.Path
		}
		return store.NewSQLiteStore(dbPath)
	}
}

// setupNotifier builds the configured notifier. The returned func releases
// any connection it holds.
func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, func(), error) {
	switch cfg.Notification.Type {
	case "telegram":
		logger.Info("using telegram notifier")
		tg := cfg.Notification.Telegram
		return notifier.NewTelegramNotifier(tg.BotToken, tg.RatePerSecond, httpClient, logger), func() {}, nil
	case "nats":
		conn, err := notifier.ConnectNATS(cfg.Notification.NATS.URL, natsConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using nats notifier", "subject", cfg.Notification.NATS.Subject)
		closeConn := func() {
			if err := conn.Drain(); err != nil {
				logger.Warn("draining nats connection", "error", err)
			}
		}
		return notifier.NewNATSNotifier(conn, cfg.Notification.NATS.Subject, logger), closeConn, nil
	default:
		return notifier.NewLogNotifier(logger), func() {}, nil
	}
}

// setupLease builds the dispatcher lease. The returned func releases any
// connection it holds.
func setupLease(ctx context.Context, cfg config.LeaseConfig, logger *slog.Logger) (model.Lease, func(), error) {
	switch cfg.Type {
	case "redis":
		client, err := lease.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis dispatch lease", "key", cfg.Key, "ttl", cfg.TTL.String())
		return lease.NewRedisLease(client, cfg.Key, cfg.TTL, logger), func() { client.Close() }, nil
	default:
		return lease.NewLocalLease(), func() {}, nil
	}
}

func setupEnricher(cfg config.EnrichmentConfig, logger *slog.Logger) model.Enricher {
	if !cfg.Enabled {
		return enrich.NewNopEnricher()
	}
	logger.Info("enrichment enabled", "model", cfg.Model, "base_url", cfg.BaseURL)
	provider := enrich.NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, &http.Client{Timeout: cfg.Timeout})
	return enrich.NewLLMEnricher(provider, enrich.EnrichmentTemplate, logger)
}

func createSource(company config.CompanyConfig, httpClient *http.Client, detailDelay time.Duration, logger *slog.Logger) (model.PostingSource, bool) {
	switch company.ATS {
	case "greenhouse":
		return adapter.NewGreenhouseAdapter(company.BoardToken, company.Name, httpClient), true
	case "ashby":
		return adapter.NewAshbyAdapter(company.BoardToken, company.Name, httpClient), true
	case "lever":
		return adapter.NewLeverAdapter(company.BoardToken, company.Name, httpClient), true
	case "bamboohr":
		return adapter.NewBambooHRAdapter(company.BoardToken, company.Name, httpClient, detailDelay, logger), true
	default:
		logger.Warn("unsupported ATS, skipping", "company", company.Name, "ats", company.ATS)
		return nil, false
	}
}

// buildCrawlers wires one crawler per enabled company. When only is set,
// every other company is skipped.
func buildCrawlers(cfg *config.Config, st model.Store, enricher model.Enricher, httpClient *http.Client, only string, logger *slog.Logger) ([]*crawler.CompanyCrawler, error) {
	// One limiter for the whole cycle: boards on the same ATS share a bucket.
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.ATSOverrides)
	policy := retry.Policy{MaxRetries: cfg.Crawl.MaxRetries, BaseDelay: cfg.Crawl.RetryBaseDelay}
	rec := reconciler.New(st, logger)

	var crawlers []*crawler.CompanyCrawler
	for _, company := range cfg.Companies {
		if !company.Enabled || (only != "" && company.Name != only) {
			continue
		}

		source, ok := createSource(company, httpClient, cfg.Crawl.DetailDelay, logger)
		if !ok {
			continue
		}
		source = retry.Wrap(ratelimit.Wrap(source, limiter, company.ATS), policy, logger)

		crawlers = append(crawlers, crawler.NewCompanyCrawler(company.Name, source, enricher, st, rec, logger))
		logger.Debug("registered company", "name", company.Name, "ats", company.ATS)
	}

	if len(crawlers) == 0 {
		if only != "" {
			return nil, fmt.Errorf("no enabled company named %q", only)
		}
		return nil, fmt.Errorf("no companies to crawl")
	}
	return crawlers, nil
}
