// Package metrics exposes Prometheus collectors for the analyzer service.
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
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	analysesTotal              *prometheus.CounterVec
	scansTotal                 *prometheus.CounterVec
	contentFetchesTotal        *prometheus.CounterVec
	exportsTotal               *prometheus.CounterVec
	rateLimitDelaySeconds      prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
			},
			[]string{"method", "route"},
		)

		analysesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linktraffic_analyses_total",
				Help: "Total number of URL analyses, labeled by data source (exact, estimated, error).",
			},
			[]string{"source"},
		)

		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linktraffic_scans_total",
				Help: "Total number of screenshot workflows, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		contentFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linktraffic_content_fetches_total",
				Help: "Total number of page content fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		exportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linktraffic_exports_total",
				Help: "Total number of rendered exports, labeled by format.",
			},
			[]string{"format"},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linktraffic_rate_limit_delay_seconds",
				Help:    "Time page fetches spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAnalysis counts a finished URL analysis by its data source.
func ObserveAnalysis(source string) {
	if source == "" {
		source = "unknown"
	}
	Init()
	analysesTotal.WithLabelValues(source).Inc()
}

// ObserveScan counts a finished screenshot workflow by outcome.
func ObserveScan(outcome string) {
	Init()
	scansTotal.WithLabelValues(outcome).Inc()
}

// ObserveContentFetch counts a page content fetch by outcome.
func ObserveContentFetch(outcome string) {
	Init()
	contentFetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveExport counts a rendered export by format.
func ObserveExport(format string) {
	Init()
	exportsTotal.WithLabelValues(format).Inc()
}

// ObserveRateLimitDelay records time spent waiting for a per-host token.
func ObserveRateLimitDelay(d time.Duration) {
	Init()
	rateLimitDelaySeconds.Observe(d.Seconds())
}
