package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Domain collectors. Registered on the default registry so domain
// services can increment them without threading a metrics handle
// through every constructor.
var (
	// ActivitiesRecorded counts ingested activity log entries by type.
	ActivitiesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestflow_activities_recorded_total",
			Help: "Total number of activity log entries recorded",
		},
		[]string{"type"},
	)

	// CacheHits counts dashboard cache hits by cache key.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestflow_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"key"},
	)

	// CacheMisses counts dashboard cache misses by cache key.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestflow_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"key"},
	)

	// MetricsRefreshRuns counts recurring refresh executions by outcome.
	MetricsRefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestflow_metrics_refresh_runs_total",
			Help: "Total number of metrics refresh job runs",
		},
		[]string{"status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guestflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
