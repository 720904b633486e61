package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric instruments for the BFF.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ResourceDeletesTotal    *prometheus.CounterVec
	PromotionMutationsTotal *prometheus.CounterVec
	NotificationsSuppressed prometheus.Counter
	SchemaProjectionsTotal  *prometheus.CounterVec
	CommerceRequestsTotal   *prometheus.CounterVec
	CommerceRequestDuration *prometheus.HistogramVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopfront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		ResourceDeletesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_resource_deletes_total",
			Help: "Total number of resource delete attempts.",
		}, []string{"resource", "status"}),
		PromotionMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_promotion_mutations_total",
			Help: "Total number of cart promotion apply/remove calls.",
		}, []string{"action", "status"}),
		NotificationsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopfront_notifications_suppressed_total",
			Help: "Duplicate notifications suppressed while an identical one was active.",
		}),
		SchemaProjectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_schema_projections_total",
			Help: "Schema projections computed, by resource.",
		}, []string{"resource"}),
		CommerceRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_commerce_requests_total",
			Help: "Requests made to the commerce platform API.",
		}, []string{"operation", "status"}),
		CommerceRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopfront_commerce_request_duration_seconds",
			Help:    "Commerce platform API request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ResourceDeletesTotal,
		m.PromotionMutationsTotal,
		m.NotificationsSuppressed,
		m.SchemaProjectionsTotal,
		m.CommerceRequestsTotal,
		m.CommerceRequestDuration,
	)
	return m
}

// MetricsMiddleware records request counts and durations labelled by the chi
// route pattern, so path parameters do not explode cardinality.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &metricsWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

type metricsWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
