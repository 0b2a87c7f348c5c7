package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Image pipeline Prometheus metrics.
var (
	ListingsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stanslist",
			Name:      "listings_processed_total",
			Help:      "Listings processed by image runs, by outcome",
		},
		[]string{"operation", "outcome"}, // outcome: matched, fallback, skipped, repaired, unresolved, failed
	)

	ProbeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stanslist",
			Name:      "image_probe_requests_total",
			Help:      "Image URL reachability probes",
		},
		[]string{"result"}, // reachable / unreachable
	)

	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stanslist",
			Name:      "image_probe_duration_seconds",
			Help:      "Image URL probe duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ProbeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stanslist",
			Name:      "image_probe_cache_total",
			Help:      "Probe verdict cache hits and misses",
		},
		[]string{"result"}, // hit / miss
	)

	StoreWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stanslist",
			Name:      "store_writes_total",
			Help:      "Record store writes",
		},
		[]string{"mode", "status"}, // mode: batch / single
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stanslist",
			Name:      "run_duration_seconds",
			Help:      "Duration of assign, repair and audit runs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"operation"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stanslist",
			Name:      "http_request_duration_seconds",
			Help:      "Admin API request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stanslist",
			Name:      "http_requests_total",
			Help:      "Total number of admin API requests",
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Register registers the collectors on the default registry. Must be called from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ListingsProcessedTotal,
			ProbeRequestsTotal,
			ProbeDuration,
			ProbeCacheTotal,
			StoreWritesTotal,
			RunDuration,
			HTTPRequestDuration,
			HTTPRequestsTotal,
		)
	})
}
