// Package metrics defines the Prometheus metrics exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintrack_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Cleanup (orphan collection) metrics
var (
	CleanupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_cleanup_runs_total",
			Help: "Total number of orphan collection passes",
		},
		[]string{"status"},
	)

	CleanupIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_cleanup_running",
			Help: "Whether an orphan collection pass is in flight (1 = running, 0 = idle)",
		},
	)

	CleanupLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_cleanup_last_run_timestamp",
			Help: "Timestamp of the last orphan collection pass",
		},
	)

	CleanupLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_cleanup_last_run_duration_seconds",
			Help: "Duration of the last orphan collection pass in seconds",
		},
	)

	CleanupFilesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_cleanup_files_scanned_total",
			Help: "Total number of stored assets scanned by the collector",
		},
	)

	CleanupFilesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_cleanup_files_deleted_total",
			Help: "Total number of orphan assets deleted",
		},
	)

	CleanupBytesFreed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_cleanup_bytes_freed_total",
			Help: "Total bytes reclaimed by orphan collection",
		},
	)

	CleanupFileErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_cleanup_file_errors_total",
			Help: "Total number of per-file errors skipped during collection",
		},
	)
)

// Asset processing metrics
var (
	VariantGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_variant_generations_total",
			Help: "Total number of image variant generations",
		},
		[]string{"variant", "status"},
	)

	VariantGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintrack_variant_generation_duration_seconds",
			Help:    "Image variant generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"variant"},
	)

	GalleryMirrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_gallery_mirrors_total",
			Help: "Total number of gallery mirror attempts",
		},
		[]string{"status"},
	)
)

// Ephemeral cache metrics
var (
	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fintrack_cache_size_bytes",
			Help: "Current size of the ephemeral cache in bytes",
		},
	)

	CacheClearsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_cache_clears_total",
			Help: "Total number of ephemeral cache clears",
		},
	)
)
