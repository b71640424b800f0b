package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screener_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	catalogObjectsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "screener_catalog_objects_total",
		Help: "Number of satellites currently in the catalog.",
	})

	ingestionSyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_ingestion_syncs_total",
			Help: "Total number of catalog sync attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	screeningStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screener_stage_duration_seconds",
			Help:    "Duration of each screening pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		},
		[]string{"stage"},
	)

	screeningStageSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "screener_stage_output_size",
			Help: "Size of each screening pipeline stage's output (pairs, detections, events, conjunctions).",
		},
		[]string{"stage"},
	)

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "screener_conjunction_stream_active",
		Help: "Number of currently connected conjunction SSE stream clients.",
	})

	streamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screener_conjunction_stream_messages_total",
		Help: "Total number of SSE messages sent to conjunction stream clients.",
	})

	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screener_conjunction_stream_bytes_total",
		Help: "Total bytes written across all conjunction SSE stream connections.",
	})

	rateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_rate_limit_rejections_total",
			Help: "Total number of requests rejected by a rate limiter, by surface.",
		},
		[]string{"surface"},
	)

	authRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screener_auth_rejections_total",
		Help: "Total number of requests rejected by authentication.",
	})

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screener_conjunction_stream_errors_total",
			Help: "Total number of conjunction SSE stream errors, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		catalogObjectsTotal,
		ingestionSyncsTotal,
		screeningStageDuration,
		screeningStageSize,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		rateLimitRejectionsTotal,
		authRejectionsTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetCatalogObjectsTotal records the current catalog size.
func SetCatalogObjectsTotal(n int) {
	catalogObjectsTotal.Set(float64(n))
}

// IncIngestionSync records one sync attempt's outcome ("success" or "failure").
func IncIngestionSync(outcome string) {
	ingestionSyncsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records a pipeline stage's wall-clock duration and output size.
func ObserveStage(stage string, duration time.Duration, size int) {
	screeningStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	screeningStageSize.WithLabelValues(stage).Set(float64(size))
}

// IncStreamsActive / DecStreamsActive track connected SSE clients.
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamMessages counts one SSE message sent to any client.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// AddStreamBytes adds n bytes to the total written across SSE connections.
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }

// IncRateLimitRejection counts one request rejected by the named surface's limiter.
func IncRateLimitRejection(surface string) { rateLimitRejectionsTotal.WithLabelValues(surface).Inc() }

// IncAuthRejection counts one request rejected by authentication.
func IncAuthRejection() { authRejectionsTotal.Inc() }

// IncStreamErrors counts one conjunction SSE stream error of the given kind.
func IncStreamErrors(kind string) { streamErrorsTotal.WithLabelValues(kind).Inc() }

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request, using a
// cardinality-bounded route label so a catalog lookup with 30000 distinct
// catalog numbers doesn't create 30000 distinct time series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

// knownRoutes are exact paths that pass through normalizeRoute unchanged.
var knownRoutes = map[string]bool{
	"/healthz":                    true,
	"/readyz":                     true,
	"/metrics":                    true,
	"/":                           true,
	"/api/v1/test":                true,
	"/api/v1/catalog/sync":        true,
	"/api/v1/catalog/stats":       true,
	"/api/v1/conjunctions":        true,
	"/api/v1/conjunctions/stream": true,
}

// normalizeRoute collapses a request path to a bounded-cardinality label:
// known exact routes pass through, /api/v1/catalog/{catId} collapses every
// catalog number to one label, and anything else (scanners, typos, unknown
// API versions) collapses to "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := cutPrefix(path, "/api/v1/catalog/"); ok && rest != "" && !strings.Contains(rest, "/") {
		if _, err := strconv.Atoi(rest); err == nil {
			return "/api/v1/catalog/{catId}"
		}
	}
	return "other"
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
