package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
scraper:
  base_url: https://twitter.com
  user_agent: pulse-agent
  min_delay_ms: 100
  max_delay_ms: 200
  max_stale_scrolls: 5
  max_posts_default: 40
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 45
discovery:
  target_total: 30
  target_per_seed: 5
  following_per_seed: 12
jobs:
  queue_depth: 128
  concurrency: 2
storage:
  backend: local
  base_dir: /tmp/snapshots
  prefix: raw
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Errorf("auth not loaded: %+v", cfg.Auth)
	}
	if cfg.Scraper.BaseURL != "https://twitter.com" {
		t.Errorf("scraper.base_url = %q", cfg.Scraper.BaseURL)
	}
	if cfg.Discovery.TargetTotal != 30 || cfg.Discovery.TargetPerSeed != 5 {
		t.Errorf("discovery bounds not loaded: %+v", cfg.Discovery)
	}
	if cfg.Jobs.Concurrency != 2 {
		t.Errorf("jobs.concurrency = %d, want 2", cfg.Jobs.Concurrency)
	}
	if cfg.Storage.Backend != "local" || cfg.Storage.BaseDir != "/tmp/snapshots" {
		t.Errorf("storage not loaded: %+v", cfg.Storage)
	}
	// Defaults should still apply for untouched keys.
	if cfg.Jobs.SyncPosts != 20 {
		t.Errorf("jobs.sync_posts default = %d, want 20", cfg.Jobs.SyncPosts)
	}
	minDelay, maxDelay := cfg.ScrapeDelayWindow()
	if minDelay != 100*time.Millisecond || maxDelay != 200*time.Millisecond {
		t.Errorf("ScrapeDelayWindow() = %v, %v", minDelay, maxDelay)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port default = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Discovery.TargetTotal != 25 || cfg.Discovery.TargetPerSeed != 4 {
		t.Errorf("discovery defaults = %+v", cfg.Discovery)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("storage.backend default = %q", cfg.Storage.Backend)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero concurrency", func(c *Config) { c.Jobs.Concurrency = 0 }},
		{"inverted delay window", func(c *Config) { c.Scraper.MinDelayMs = 500; c.Scraper.MaxDelayMs = 100 }},
		{"headless without parallel", func(c *Config) { c.Headless.Enabled = true; c.Headless.MaxParallel = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = "gcs"; c.Storage.GCSBucket = "" }},
		{"local without dir", func(c *Config) { c.Storage.Backend = "local"; c.Storage.BaseDir = "" }},
		{"auth without key", func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKey = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}
