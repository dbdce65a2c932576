// Package metrics exposes Prometheus collectors for the discovery service.
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
	runsTotal                  *prometheus.CounterVec
	recordsAddedTotal          prometheus.Counter
	recordsPrunedTotal         prometheus.Counter
	lastSuccessTimestamp       prometheus.Gauge
	activeRuns                 prometheus.Gauge
	sourceAttemptsTotal        *prometheus.CounterVec
	seedFallbacksTotal         prometheus.Counter
	fetchesTotal               *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	headlessPromotionsTotal    *prometheus.CounterVec
	pacingDelaySeconds         *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Source attempt outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newopenings_runs_total",
				Help: "Total number of pipeline runs, labeled by trigger and status.",
			},
			[]string{"trigger", "status"},
		)

		recordsAddedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newopenings_records_added_total",
				Help: "Total number of restaurants inserted by reconciliation.",
			},
		)

		recordsPrunedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newopenings_records_pruned_total",
				Help: "Total number of restaurants removed for falling out of the retention window.",
			},
		)

		lastSuccessTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "newopenings_last_success_timestamp_seconds",
				Help: "Unix time of the last successful reconciliation.",
			},
		)

		activeRuns = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "newopenings_active_runs",
				Help: "Number of pipeline runs currently executing.",
			},
		)

		sourceAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newopenings_source_attempts_total",
				Help: "Discovery source attempts, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		seedFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newopenings_seed_fallbacks_total",
				Help: "Number of discoveries that fell back to the seed list.",
			},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newopenings_fetches_total",
				Help: "Outbound fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newopenings_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		headlessPromotionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newopenings_headless_promotions_total",
				Help: "Pages re-rendered in a headless browser, labeled by site.",
			},
			[]string{"site"},
		)

		pacingDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newopenings_pacing_delay_seconds",
				Help:    "Histogram of pacing waits between requests to one site.",
				Buckets: []float64{0.1, 0.5, 1, 2, 3, 4, 5, 10},
			},
			[]string{"site"},
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

// ObserveRun records a finished pipeline run.
func ObserveRun(trigger, status string, added, pruned int64, finished time.Time) {
	Init()
	runsTotal.WithLabelValues(trigger, status).Inc()
	if added > 0 {
		recordsAddedTotal.Add(float64(added))
	}
	if pruned > 0 {
		recordsPrunedTotal.Add(float64(pruned))
	}
	if status == "success" {
		lastSuccessTimestamp.Set(float64(finished.Unix()))
	}
}

// IncActiveRuns increments the active runs gauge.
func IncActiveRuns() {
	Init()
	activeRuns.Inc()
}

// DecActiveRuns decrements the active runs gauge.
func DecActiveRuns() {
	Init()
	activeRuns.Dec()
}

// ObserveSourceAttempt counts one discovery source attempt.
func ObserveSourceAttempt(source, outcome string) {
	Init()
	sourceAttemptsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveSeedFallback counts a discovery that used the seed list.
func ObserveSeedFallback() {
	Init()
	seedFallbacksTotal.Inc()
}

// ObserveFetch counts an outbound fetch. status is the HTTP code, or "error".
func ObserveFetch(site, status string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	fetchesTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveHeadlessPromotion counts a page that needed a browser render.
func ObserveHeadlessPromotion(site string) {
	Init()
	headlessPromotionsTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// ObservePacingDelay records the duration of a pacing wait.
func ObservePacingDelay(site string, duration time.Duration) {
	Init()
	pacingDelaySeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
