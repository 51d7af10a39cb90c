// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs for the ingestion service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Source    SourceConfig    `mapstructure:"source"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Pacing    PacingConfig    `mapstructure:"pacing"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	DB        DBConfig        `mapstructure:"db"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the HTTP admin surface.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SourceConfig identifies the catalog being ingested.
type SourceConfig struct {
	Name         string   `mapstructure:"name"`
	Brand        string   `mapstructure:"brand"`
	CategoryURLs []string `mapstructure:"category_urls"`
}

// ScrapeConfig governs the browser session and category crawl.
type ScrapeConfig struct {
	UserAgent           string `mapstructure:"user_agent"`
	ProductLinkSelector string `mapstructure:"product_link_selector"`
	GridSelector        string `mapstructure:"grid_selector"`
	MaxScrolls          int    `mapstructure:"max_scrolls"`
	StableReads         int    `mapstructure:"stable_reads"`
	SettleDelayMs       int    `mapstructure:"settle_delay_ms"`
	NavTimeoutSeconds   int    `mapstructure:"nav_timeout_seconds"`
	TestMode            bool   `mapstructure:"test_mode"`
	TestModeLimit       int    `mapstructure:"test_mode_limit"`
}

// PacingConfig sets the minimum spacing between outbound visits.
type PacingConfig struct {
	ProductDelayMs  int `mapstructure:"product_delay_ms"`
	CategoryDelayMs int `mapstructure:"category_delay_ms"`
}

// RetryConfig shapes the shared backoff policy.
type RetryConfig struct {
	MaxAttempts      int `mapstructure:"max_attempts"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// EmbeddingConfig points at the image embedding service.
type EmbeddingConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	Dimension      int    `mapstructure:"dimension"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the product database.
type DBConfig struct {
	DSN                 string `mapstructure:"dsn"`
	Table               string `mapstructure:"table"`
	MaxConns            int    `mapstructure:"max_conns"`
	MinConns            int    `mapstructure:"min_conns"`
	ConnLifetimeMinutes int    `mapstructure:"conn_lifetime_minutes"`
}

// ArchiveConfig selects where raw image bytes are archived.
type ArchiveConfig struct {
	// Backend is one of "none", "gcs", "local", or "memory".
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
}

// PubSubConfig holds event publishing settings.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from an optional file plus CATALOG_* environment
// variables, applies defaults, and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.name", "scraper")
	v.SetDefault("source.brand", "American Eagle")
	v.SetDefault("scrape.user_agent", "catalog-ingest/0.1")
	v.SetDefault("scrape.product_link_selector", `a[href*="/p/"]`)
	v.SetDefault("scrape.max_scrolls", 50)
	v.SetDefault("scrape.stable_reads", 2)
	v.SetDefault("scrape.settle_delay_ms", 2000)
	v.SetDefault("scrape.nav_timeout_seconds", 45)
	v.SetDefault("scrape.test_mode_limit", 5)
	v.SetDefault("pacing.product_delay_ms", 1000)
	v.SetDefault("pacing.category_delay_ms", 3000)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_initial_ms", 500)
	v.SetDefault("retry.backoff_max_ms", 8000)
	v.SetDefault("embedding.model", "siglip")
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.timeout_seconds", 30)
	v.SetDefault("db.table", "products")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Source.CategoryURLs) == 0 {
		return fmt.Errorf("source.category_urls must name at least one category")
	}
	if c.Scrape.MaxScrolls <= 0 {
		return fmt.Errorf("scrape.max_scrolls must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be > 0")
	}
	switch c.Archive.Backend {
	case "", "none", "memory":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set for the local backend")
		}
	default:
		return fmt.Errorf("archive.backend %q is not recognized", c.Archive.Backend)
	}
	if c.PubSub.Enabled && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub is enabled")
	}
	return nil
}

// ProductDelay returns the pacing interval for product visits.
func (c Config) ProductDelay() time.Duration {
	return time.Duration(c.Pacing.ProductDelayMs) * time.Millisecond
}

// CategoryDelay returns the pacing interval for category visits.
func (c Config) CategoryDelay() time.Duration {
	return time.Duration(c.Pacing.CategoryDelayMs) * time.Millisecond
}

// SettleDelay returns how long to wait after navigation for content to render.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Scrape.SettleDelayMs) * time.Millisecond
}
