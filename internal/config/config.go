// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Callback  CallbackConfig  `mapstructure:"callback"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScraperConfig governs page navigation and extraction behavior.
type ScraperConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	UserAgent        string `mapstructure:"user_agent"`
	MinDelayMs       int    `mapstructure:"min_delay_ms"`
	MaxDelayMs       int    `mapstructure:"max_delay_ms"`
	MaxStaleScrolls  int    `mapstructure:"max_stale_scrolls"`
	MaxPostsDefault  int    `mapstructure:"max_posts_default"`
	ProbeTimeoutSec  int    `mapstructure:"probe_timeout_seconds"`
	SnapshotRawPages bool   `mapstructure:"snapshot_raw_pages"`
}

// HeadlessConfig configures the headless browser subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// DiscoveryConfig bounds the network-discovery walk.
type DiscoveryConfig struct {
	TargetTotal      int `mapstructure:"target_total"`
	TargetPerSeed    int `mapstructure:"target_per_seed"`
	FollowingPerSeed int `mapstructure:"following_per_seed"`
	InlineSyncPosts  int `mapstructure:"inline_sync_posts"`
}

// JobsConfig controls the background job queue and worker pool.
type JobsConfig struct {
	QueueDepth  int `mapstructure:"queue_depth"`
	Concurrency int `mapstructure:"concurrency"`
	SyncPosts   int `mapstructure:"sync_posts"`
}

// StorageConfig selects the snapshot blob backend and its parameters.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	BaseDir     string `mapstructure:"base_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// CallbackConfig controls outbound delivery of synced posts.
type CallbackConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOCIALPULSE")
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
	v.SetDefault("scraper.base_url", "https://x.com")
	v.SetDefault("scraper.user_agent", "socialpulse-bot/0.1")
	v.SetDefault("scraper.min_delay_ms", 2000)
	v.SetDefault("scraper.max_delay_ms", 5000)
	v.SetDefault("scraper.max_stale_scrolls", 10)
	v.SetDefault("scraper.max_posts_default", 20)
	v.SetDefault("scraper.probe_timeout_seconds", 15)
	v.SetDefault("scraper.snapshot_raw_pages", true)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.promotion_threshold", 60)
	v.SetDefault("discovery.target_total", 25)
	v.SetDefault("discovery.target_per_seed", 4)
	v.SetDefault("discovery.following_per_seed", 10)
	v.SetDefault("discovery.inline_sync_posts", 10)
	v.SetDefault("jobs.queue_depth", 64)
	v.SetDefault("jobs.concurrency", 1)
	v.SetDefault("jobs.sync_posts", 20)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.prefix", "snapshots")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("callback.timeout_seconds", 15)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs.concurrency must be > 0")
	}
	if c.Scraper.MinDelayMs < 0 || c.Scraper.MaxDelayMs < c.Scraper.MinDelayMs {
		return fmt.Errorf("scraper delay window is invalid")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Discovery.TargetTotal <= 0 || c.Discovery.TargetPerSeed <= 0 {
		return fmt.Errorf("discovery targets must be > 0")
	}
	switch c.Storage.Backend {
	case "memory", "local", "gcs":
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	if c.Storage.Backend == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
	}
	if c.Storage.Backend == "local" && c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir must be set for the local backend")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// ScrapeDelayWindow returns the randomized inter-action delay bounds.
func (c Config) ScrapeDelayWindow() (time.Duration, time.Duration) {
	return time.Duration(c.Scraper.MinDelayMs) * time.Millisecond,
		time.Duration(c.Scraper.MaxDelayMs) * time.Millisecond
}
