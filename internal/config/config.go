package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for applynow.
type Config struct {
	Database     DatabaseConfig
	Crawl        CrawlConfig
	Companies    []CompanyConfig
	RateLimit    RateLimitConfig
	Enrichment   EnrichmentConfig
	Dispatch     DispatchConfig
	Notification NotificationConfig
}

// DatabaseConfig selects the job store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" (default) or "postgres"
	Path   string `yaml:"path"`   // sqlite file path
	URL    string `yaml:"url"`    // postgres connection string
}

// CrawlConfig controls the crawl scheduler.
type CrawlConfig struct {
	Schedule       string        // cron expression or descriptor, e.g. "@every 1h"
	CompanyDelay   time.Duration // pause between companies within one cycle
	DetailDelay    time.Duration // pause between per-posting detail requests
	HTTPTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// CompanyConfig describes a single careers board to crawl.
type CompanyConfig struct {
	Name       string `yaml:"name"`
	ATS        string `yaml:"ats"`         // greenhouse, lever, ashby or bamboohr
	BoardToken string `yaml:"board_token"` // board token, slug or subdomain depending on ATS
	Enabled    bool   `yaml:"enabled"`
}

// RateLimitConfig controls ATS-level rate limiting.
type RateLimitConfig struct {
	MinDelay     time.Duration            // minimum gap between requests to the same ATS
	ATSOverrides map[string]time.Duration // per-ATS overrides, keyed by ATS name
}

// MinDelayFor returns the configured delay for the given ATS, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(ats string) time.Duration {
	if d, ok := r.ATSOverrides[ats]; ok {
		return d
	}
	return r.MinDelay
}

// EnrichmentConfig controls the optional LLM enrichment step.
type EnrichmentConfig struct {
	Enabled bool
	BaseURL string // defaults to https://api.openai.com/v1
	Model   string
	APIKey  string // expanded from env var by Load
	Timeout time.Duration
}

// DispatchConfig controls the notification dispatcher.
type DispatchConfig struct {
	Interval time.Duration
	Lease    LeaseConfig
}

// LeaseConfig selects how dispatcher instances are kept exclusive.
type LeaseConfig struct {
	Type     string // "local" (default) or "redis"
	RedisURL string
	Key      string
	TTL      time.Duration
}

// NotificationConfig controls which notifier delivers alerts.
type NotificationConfig struct {
	Type     string         `yaml:"type"` // "log", "telegram" or "nats"
	Telegram TelegramConfig `yaml:"telegram"`
	NATS     NATSConfig     `yaml:"nats"`
}

// TelegramConfig holds the Bot API settings.
type TelegramConfig struct {
	BotToken      string  `yaml:"bot_token"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// NATSConfig holds the subject alerts are published on.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

const (
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultSQLitePath     = "applynow.db"
	defaultCrawlSchedule  = "@every 1h"
	defaultLeaseKey       = "applynow:dispatch:lease"
	defaultNATSSubject    = "applynow.alerts"
	defaultTelegramRate   = 25
	defaultDispatchPeriod = 30 * time.Second
)

// SupportedATS lists the ATS values a company entry may use.
var SupportedATS = []string{"greenhouse", "lever", "ashby", "bamboohr"}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database     DatabaseConfig     `yaml:"database"`
	Crawl        rawCrawlConfig     `yaml:"crawl"`
	Companies    []CompanyConfig    `yaml:"companies"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Enrichment   rawEnrichment      `yaml:"enrichment"`
	Dispatch     rawDispatchConfig  `yaml:"dispatch"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawCrawlConfig struct {
	Schedule       string `yaml:"schedule"`
	CompanyDelay   string `yaml:"company_delay"`
	DetailDelay    string `yaml:"detail_delay"`
	HTTPTimeout    string `yaml:"http_timeout"`
	MaxRetries     *int   `yaml:"max_retries"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
}

type rawRateLimitConfig struct {
	MinDelay     string            `yaml:"min_delay"`
	ATSOverrides map[string]string `yaml:"ats_overrides"`
}

type rawEnrichment struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawDispatchConfig struct {
	Interval string `yaml:"interval"`
	Lease    struct {
		Type     string `yaml:"type"`
		RedisURL string `yaml:"redis_url"`
		Key      string `yaml:"key"`
		TTL      string `yaml:"ttl"`
	} `yaml:"lease"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	d := durations{}
	cfg := &Config{
		Database:  raw.Database,
		Companies: raw.Companies,
		Crawl: CrawlConfig{
			Schedule:       raw.Crawl.Schedule,
			CompanyDelay:   d.parse("crawl.company_delay", raw.Crawl.CompanyDelay, time.Minute),
			DetailDelay:    d.parse("crawl.detail_delay", raw.Crawl.DetailDelay, 2*time.Second),
			HTTPTimeout:    d.parse("crawl.http_timeout", raw.Crawl.HTTPTimeout, 30*time.Second),
			MaxRetries:     3,
			RetryBaseDelay: d.parse("crawl.retry_base_delay", raw.Crawl.RetryBaseDelay, 2*time.Second),
		},
		RateLimit: RateLimitConfig{
			MinDelay:     d.parse("rate_limit.min_delay", raw.RateLimit.MinDelay, 10*time.Second),
			ATSOverrides: make(map[string]time.Duration),
		},
		Enrichment: EnrichmentConfig{
			Enabled: raw.Enrichment.Enabled,
			BaseURL: raw.Enrichment.BaseURL,
			Model:   raw.Enrichment.Model,
			APIKey:  raw.Enrichment.APIKey,
			Timeout: d.parse("enrichment.timeout", raw.Enrichment.Timeout, 30*time.Second),
		},
		Dispatch: DispatchConfig{
			Interval: d.parse("dispatch.interval", raw.Dispatch.Interval, defaultDispatchPeriod),
			Lease: LeaseConfig{
				Type:     raw.Dispatch.Lease.Type,
				RedisURL: raw.Dispatch.Lease.RedisURL,
				Key:      raw.Dispatch.Lease.Key,
				TTL:      d.parse("dispatch.lease.ttl", raw.Dispatch.Lease.TTL, 0),
			},
		},
		Notification: raw.Notification,
	}
	for ats, v := range raw.RateLimit.ATSOverrides {
		cfg.RateLimit.ATSOverrides[ats] = d.parse(fmt.Sprintf("rate_limit.ats_overrides[%q]", ats), v, 0)
	}
	if raw.Crawl.MaxRetries != nil {
		cfg.Crawl.MaxRetries = *raw.Crawl.MaxRetries
	}
	if d.err != nil {
		return nil, d.err
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durations parses optional duration strings, keeping the first error.
type durations struct {
	err error
}

func (d *durations) parse(field, value string, fallback time.Duration) time.Duration {
	if value == "" || d.err != nil {
		return fallback
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", field, value, err)
		return fallback
	}
	return v
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = defaultSQLitePath
	}
	if cfg.Crawl.Schedule == "" {
		cfg.Crawl.Schedule = defaultCrawlSchedule
	}
	if cfg.Enrichment.BaseURL == "" {
		cfg.Enrichment.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Dispatch.Lease.Type == "" {
		cfg.Dispatch.Lease.Type = "local"
	}
	if cfg.Dispatch.Lease.Key == "" {
		cfg.Dispatch.Lease.Key = defaultLeaseKey
	}
	if cfg.Dispatch.Lease.TTL == 0 {
		// The lease is renewed while held; TTL bounds how long a crashed
		// holder blocks the others.
		cfg.Dispatch.Lease.TTL = 4 * cfg.Dispatch.Interval
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Notification.Telegram.RatePerSecond == 0 {
		cfg.Notification.Telegram.RatePerSecond = defaultTelegramRate
	}
	if cfg.Notification.NATS.Subject == "" {
		cfg.Notification.NATS.Subject = defaultNATSSubject
	}
	for i := range cfg.Companies {
		cfg.Companies[i].ATS = strings.ToLower(cfg.Companies[i].ATS)
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required when driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Database.Driver)
	}

	if _, err := cron.ParseStandard(cfg.Crawl.Schedule); err != nil {
		return fmt.Errorf("crawl.schedule %q: %w", cfg.Crawl.Schedule, err)
	}
	if cfg.Crawl.HTTPTimeout <= 0 {
		return fmt.Errorf("crawl.http_timeout must be positive, got %v", cfg.Crawl.HTTPTimeout)
	}
	if cfg.Crawl.MaxRetries < 0 {
		return fmt.Errorf("crawl.max_retries must not be negative, got %d", cfg.Crawl.MaxRetries)
	}

	enabled := 0
	names := make(map[string]bool)
	for _, c := range cfg.Companies {
		if c.Name != "" && names[c.Name] {
			return fmt.Errorf("company %q is configured twice", c.Name)
		}
		names[c.Name] = true
		if !c.Enabled {
			continue
		}
		enabled++
		if c.Name == "" {
			return fmt.Errorf("every enabled company needs a name")
		}
		if !supportedATS(c.ATS) {
			return fmt.Errorf("company %q: unsupported ats %q", c.Name, c.ATS)
		}
		if c.BoardToken == "" {
			return fmt.Errorf("company %q: board_token is required", c.Name)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one company must be enabled")
	}

	if cfg.Dispatch.Interval <= 0 {
		return fmt.Errorf("dispatch.interval must be positive, got %v", cfg.Dispatch.Interval)
	}
	switch cfg.Dispatch.Lease.Type {
	case "local":
	case "redis":
		if cfg.Dispatch.Lease.RedisURL == "" {
			return fmt.Errorf("dispatch.lease.redis_url is required when lease type is \"redis\"")
		}
	default:
		return fmt.Errorf("dispatch.lease.type must be \"local\" or \"redis\", got %q", cfg.Dispatch.Lease.Type)
	}

	switch cfg.Notification.Type {
	case "log":
	case "telegram":
		if cfg.Notification.Telegram.BotToken == "" {
			return fmt.Errorf("notification.telegram.bot_token is required when type is \"telegram\"")
		}
	case "nats":
		if cfg.Notification.NATS.URL == "" {
			return fmt.Errorf("notification.nats.url is required when type is \"nats\"")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\", \"telegram\" or \"nats\", got %q", cfg.Notification.Type)
	}

	if cfg.Enrichment.Enabled {
		if cfg.Enrichment.APIKey == "" {
			return fmt.Errorf("enrichment.api_key is required when enrichment.enabled is true")
		}
		if cfg.Enrichment.Model == "" {
			return fmt.Errorf("enrichment.model is required when enrichment.enabled is true")
		}
	}

	return nil
}

func supportedATS(ats string) bool {
	for _, s := range SupportedATS {
		if s == ats {
			return true
		}
	}
	return false
}
