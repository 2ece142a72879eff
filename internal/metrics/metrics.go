// Package metrics holds the Prometheus collectors shared by the binaries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "wonchon_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"pattern", "method", "status"},
	)

	// FilingSubmissions counts create-filing calls by result
	FilingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wonchon_filing_submissions_total",
			Help: "Number of filing jobs requested",
		},
		[]string{"result"},
	)

	// FilingOutcomes counts jobs that stopped polling, by final outcome
	FilingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wonchon_filing_outcomes_total",
			Help: "Number of filing jobs by terminal outcome",
		},
		[]string{"outcome"},
	)

	// FilingPolls counts status polls by observed status
	FilingPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wonchon_filing_polls_total",
			Help: "Number of filing status polls",
		},
		[]string{"status"},
	)

	// DraftOperations tracks draft store operations
	DraftOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wonchon_draft_operations_total",
			Help: "Number of draft operations",
		},
		[]string{"operation"},
	)

	// CacheHits tracks cache hits/misses
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wonchon_cache_hits_total",
			Help: "Number of cache lookups",
		},
		[]string{"cache", "result"},
	)

	// DocumentsGenerated counts worker output by category
	DocumentsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wonchon_documents_generated_total",
			Help: "Number of documents generated",
		},
		[]string{"category"},
	)

	// RateLimited counts requests rejected by the per-IP limiter
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wonchon_rate_limited_total",
			Help: "Number of requests rejected by the rate limiter",
		},
	)

	// SuspiciousRequests counts requests flagged by the detector, by reason
	SuspiciousRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wonchon_suspicious_requests_total",
			Help: "Number of requests flagged as suspicious",
		},
		[]string{"reason"},
	)

	// ActiveWizards tracks open declaration sessions
	ActiveWizards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wonchon_active_wizards",
			Help: "Number of open declaration wizards",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one HTTP request. pattern is the matched route so
// label cardinality stays bounded.
func ObserveRequest(pattern, method string, status int, elapsed time.Duration) {
	if pattern == "" {
		pattern = "unmatched"
	}
	RequestDuration.WithLabelValues(pattern, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
