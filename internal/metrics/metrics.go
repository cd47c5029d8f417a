// Package metrics provides Prometheus metrics for the webdir server.
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
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdir_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webdir_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Engine metrics
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdir_resolutions_total",
			Help: "Path resolutions by outcome (file, directory, missing)",
		},
		[]string{"kind"},
	)

	notModifiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdir_not_modified_total",
			Help: "Responses answered with 304 Not Modified",
		},
	)

	listingEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webdir_listing_entries",
			Help:    "Number of entries in generated directory listings",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	markdownRenders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdir_markdown_renders_total",
			Help: "Markdown documents rendered to HTML",
		},
	)

	pushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdir_push_promises_total",
			Help: "HTTP/2 push promises for sidecar assets",
		},
		[]string{"status"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdir_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordResolution counts one path resolution by its outcome.
func RecordResolution(kind string) {
	resolutionsTotal.WithLabelValues(kind).Inc()
}

// RecordNotModified counts a 304 response.
func RecordNotModified() {
	notModifiedTotal.Inc()
}

// RecordListing records the size of a generated listing.
func RecordListing(entries int) {
	listingEntries.Observe(float64(entries))
}

// RecordMarkdownRender counts a Markdown render.
func RecordMarkdownRender() {
	markdownRenders.Inc()
}

// RecordPush records a push promise attempt.
func RecordPush(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	pushesTotal.WithLabelValues(status).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and push detection reach the
// underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, rw.statusCode, time.Since(start))
	})
}
