// Package metrics provides Prometheus metrics collection for the sunday-edge service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// CacheOperationsTotal tracks cache store operations.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)

	// CacheSize tracks the number of entries held in memory.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Current number of in-memory cache entries",
		},
	)

	// CacheCapacity tracks the configured entry limit.
	CacheCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_capacity",
			Help: "Maximum number of in-memory cache entries",
		},
	)

	// MirrorOperationsTotal tracks durable mirror operations.
	MirrorOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_mirror_operations_total",
			Help: "Total number of durable cache mirror operations",
		},
		[]string{"operation", "result"},
	)

	// UpstreamFetchTotal tracks cache-first fetches by resource and outcome.
	UpstreamFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetch_total",
			Help: "Total number of cache-first fetches",
		},
		[]string{"resource", "outcome"},
	)

	// UpstreamFetchDuration tracks how long upstream fetch functions take.
	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"resource"},
	)

	// LiveState tracks the live update channel state (0 disconnected, 1 connecting, 2 connected).
	LiveState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_channel_state",
			Help: "Live update channel state",
		},
	)

	// LiveReconnectsTotal tracks scheduled reconnects and give-ups.
	LiveReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_reconnects_total",
			Help: "Total number of live channel reconnect decisions",
		},
		[]string{"result"},
	)

	// LiveMessagesTotal tracks inbound live messages by type and handling result.
	LiveMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_messages_total",
			Help: "Total number of inbound live messages",
		},
		[]string{"type", "result"},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordCacheOperation records metrics for a cache operation.
func RecordCacheOperation(operation, result string) {
	CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// UpdateCacheMetrics updates cache size and capacity metrics.
func UpdateCacheMetrics(size, capacity int) {
	CacheSize.Set(float64(size))
	CacheCapacity.Set(float64(capacity))
}

// RecordMirrorOperation records metrics for a durable mirror operation.
func RecordMirrorOperation(operation, result string) {
	MirrorOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordUpstreamFetch records the outcome of a cache-first fetch.
func RecordUpstreamFetch(resource, outcome string) {
	UpstreamFetchTotal.WithLabelValues(resource, outcome).Inc()
}

// ObserveUpstreamFetch records how long an upstream call took.
func ObserveUpstreamFetch(resource string, d time.Duration) {
	UpstreamFetchDuration.WithLabelValues(resource).Observe(d.Seconds())
}

// SetLiveState records the current live channel state.
func SetLiveState(state int) {
	LiveState.Set(float64(state))
}

// RecordLiveReconnect records a connection attempt result ("attempt", "connected", "failed" or "gave_up").
func RecordLiveReconnect(result string) {
	LiveReconnectsTotal.WithLabelValues(result).Inc()
}

// RecordLiveMessage records an inbound live message.
func RecordLiveMessage(msgType, result string) {
	LiveMessagesTotal.WithLabelValues(msgType, result).Inc()
}
