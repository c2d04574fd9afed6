// Package metrics exposes Prometheus collectors for the opinion crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerItemsTotal             *prometheus.CounterVec
	crawlerSourcesTotal           *prometheus.CounterVec
	crawlerScanDurationSeconds    *prometheus.HistogramVec
	crawlerBaselineCommitsTotal   *prometheus.CounterVec
	crawlerFetchesTotal           *prometheus.CounterVec
	crawlerBytesTotal             *prometheus.CounterVec
	crawlerDispatchTotal          *prometheus.CounterVec
	crawlerErrorsTotal            *prometheus.CounterVec
	crawlerRateLimitDelaysSeconds *prometheus.HistogramVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors with the default registry.
// It is safe to call this function multiple times; the Observe helpers call
// it themselves.
func Init() {
	once.Do(func() {
		crawlerItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_items_total",
				Help: "Candidate items processed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		crawlerSourcesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_sources_total",
				Help: "Source scans finished, labeled by status.",
			},
			[]string{"status"},
		)

		crawlerScanDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_scan_duration_seconds",
				Help:    "Wall time of one source scan.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"source"},
		)

		crawlerBaselineCommitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_baseline_commits_total",
				Help: "Baseline hash commits, labeled by source and result.",
			},
			[]string{"source", "result"},
		)

		crawlerFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetches_total",
				Help: "Document fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerDispatchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_extraction_dispatch_total",
				Help: "Extraction tasks handed to the pipeline, labeled by status.",
			},
			[]string{"status"},
		)

		crawlerErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_errors_total",
				Help: "Errors reported, labeled by severity.",
			},
			[]string{"severity"},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveItem counts one candidate item outcome for a source.
func ObserveItem(source, outcome string) {
	Init()
	crawlerItemsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveScan records a finished source scan.
func ObserveScan(source, status string, duration time.Duration) {
	Init()
	crawlerSourcesTotal.WithLabelValues(status).Inc()
	crawlerScanDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveBaselineCommit records a baseline write attempt.
func ObserveBaselineCommit(source string, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	crawlerBaselineCommitsTotal.WithLabelValues(source, result).Inc()
}

// ObserveFetch counts a document fetch and the bytes it returned.
func ObserveFetch(rawURL, status string, bytesFetched int) {
	Init()
	site := SanitizeSite(rawURL)
	crawlerFetchesTotal.WithLabelValues(site, status).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveDispatch counts an extraction dispatch result.
func ObserveDispatch(status string) {
	Init()
	crawlerDispatchTotal.WithLabelValues(status).Inc()
}

// ObserveError counts a reported error.
func ObserveError(severity string) {
	Init()
	crawlerErrorsTotal.WithLabelValues(severity).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
