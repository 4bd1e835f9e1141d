// Package observability provides metrics and tracing for the application.
package observability

import (
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngagementIncrements counts view/like counter increments by kind and outcome.
	EngagementIncrements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_engagement_increments_total",
		Help: "Total number of view/like counter increments",
	}, []string{"counter", "outcome"})

	// AutosaveResults counts editor auto-save attempts by outcome.
	AutosaveResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_autosave_results_total",
		Help: "Total number of editor auto-save attempts by outcome",
	}, []string{"outcome"})

	// CacheRequests counts cache-aside lookups by result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_cache_requests_total",
		Help: "Total number of cache lookups by result",
	}, []string{"result"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bienestar_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// BlobUploads counts blob store uploads by outcome.
	BlobUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_blob_uploads_total",
		Help: "Total number of blob store uploads by outcome",
	}, []string{"outcome"})
)

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// InitHTTPMetrics creates the Prometheus middleware for the Fiber app. The
// instance is shared; the underlying collectors can only be registered once
// per process.
func InitHTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	return httpMetrics
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
