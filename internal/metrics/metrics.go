// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal               *prometheus.CounterVec
	postsScrapedTotal          prometheus.Counter
	profilesDiscoveredTotal    prometheus.Counter
	jobsTotal                  *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	headlessPromotionsTotal    prometheus.Counter
	callbackDeliveriesTotal    *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialpulse_scrapes_total",
				Help: "Total scrape operations, labeled by kind (profile, timeline, following) and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		postsScrapedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "socialpulse_posts_scraped_total",
				Help: "Total posts extracted from rendered timelines.",
			},
		)

		profilesDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "socialpulse_profiles_discovered_total",
				Help: "Total profiles added by discovery jobs.",
			},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialpulse_jobs_total",
				Help: "Total background jobs processed, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "socialpulse_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		headlessPromotionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "socialpulse_headless_promotions_total",
				Help: "Probe fetches promoted to a full headless render.",
			},
		)

		callbackDeliveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialpulse_callback_deliveries_total",
				Help: "Post batches delivered to callback endpoints, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape records one scrape attempt.
func ObserveScrape(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	scrapesTotal.WithLabelValues(kind, outcome).Inc()
}

// AddPostsScraped adds to the extracted post counter.
func AddPostsScraped(n int) {
	if n > 0 {
		postsScrapedTotal.Add(float64(n))
	}
}

// AddProfilesDiscovered adds to the discovery counter.
func AddProfilesDiscovered(n int) {
	if n > 0 {
		profilesDiscoveredTotal.Add(float64(n))
	}
}

// ObserveJob increments the job counter for the given kind and status.
func ObserveJob(kind, status string) {
	jobsTotal.WithLabelValues(kind, status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObserveHeadlessPromotion records a probe promoted to a browser render.
func ObserveHeadlessPromotion() {
	headlessPromotionsTotal.Inc()
}

// ObserveCallbackDelivery records a callback POST outcome.
func ObserveCallbackDelivery(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	callbackDeliveriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
