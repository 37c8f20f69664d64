// Package main hosts the socialpulse service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, synchronous scrape endpoints (profiles, timelines,
//     analytics), and background job management (discovery, sync, status, cancel). Requests are validated, normalized
//     into social.JobParameters, and persisted via the JobStore before being enqueued for work.
//   - Dispatcher & queue: jobs flow through a bounded in-memory queue sized by config.Jobs.QueueDepth and are fanned
//     out to a fixed worker pool sized by config.Jobs.Concurrency. Context cancellation stops workers cleanly on
//     shutdown.
//   - Scrape pipeline: profile pages try a lightweight Colly probe first and promote to a headless Chromedp render
//     when the heuristic detector deems the markup incomplete; timeline and following pages always render because
//     they depend on infinite scroll. Extraction is goquery over the rendered DOM.
//   - Discovery & sync: the discovery engine walks outward from seed profiles through following lists under
//     per-seed and total bounds; the sync pipeline scrapes recent posts per username and POSTs them to a
//     caller-supplied callback URL.
//   - Progress: workers emit job lifecycle and per-account scrape events into a batching hub that fans them out to
//     zap logs, Prometheus collectors, and heartbeat notes on the job record served by the jobs API.
//   - Persistence & fanout: raw page snapshots are written content-addressed to the configured BlobStore
//     (memory/local/GCS). Profiles and posts are optionally persisted to Postgres, and a compact Pub/Sub job event
//     is published when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files (SOCIALPULSE_ prefix); zap provides structured
//     logging; Prometheus metrics are exported via /metrics. The service is stateless across requests.
//
// Operational notes:
//   - Concurrency model: bounded queue + fixed worker pool; headless renders have their own semaphore inside the
//     Chromedp browser. Shutdown is coordinated via context cancellation propagated from main through dispatcher to
//     workers.
//   - Pacing: randomized delays between scroll actions are bounded by scraper.min_delay_ms/max_delay_ms; scrolling
//     stops after scraper.max_stale_scrolls rounds without page growth.
//   - Run locally: go run ./cmd/socialpulse -config config.yaml (or rely solely on env overrides).
package main
