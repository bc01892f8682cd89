package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain Prometheus metrics.
var (
	DirectoryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labeldesk",
			Name:      "directory_requests_total",
			Help:      "Total number of requests to the profile directory and embed services",
		},
		[]string{"endpoint", "status"},
	)

	DirectoryRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labeldesk",
			Name:      "directory_request_duration_seconds",
			Help:      "Directory and embed request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labeldesk",
			Name:      "cache_total",
			Help:      "Memo cache hits and misses",
		},
		[]string{"cache", "result"}, // "profile"|"projection", "hit"|"miss"
	)

	ProjectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "labeldesk",
			Name:      "projection_duration_seconds",
			Help:      "t-SNE projection computation time in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	LabelsCommittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labeldesk",
			Name:      "labels_committed_total",
			Help:      "Total number of labels persisted to the store",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "labeldesk",
			Name:      "sessions_active",
			Help:      "Number of live annotation sessions",
		},
	)
)

var registerOnce sync.Once

// RegisterDomainMetrics registers the domain metrics. Safe to call more than once.
func RegisterDomainMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			DirectoryRequestsTotal,
			DirectoryRequestDuration,
			CacheTotal,
			ProjectionDuration,
			LabelsCommittedTotal,
			SessionsActive,
		)
	})
}

// CacheHit records a memo hit for the named cache.
func CacheHit(cache string) { CacheTotal.WithLabelValues(cache, "hit").Inc() }

// CacheMiss records a memo miss for the named cache.
func CacheMiss(cache string) { CacheTotal.WithLabelValues(cache, "miss").Inc() }
