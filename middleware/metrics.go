package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quiverhttp/quiver/core/handler"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool

	// Registerer receives the middleware's collectors (default: prometheus.DefaultRegisterer)
	Registerer prometheus.Registerer

	// Namespace prefixes all metric names (default: "http")
	Namespace string

	// DurationBuckets overrides the request duration histogram buckets
	DurationBuckets []float64

	// RoutePattern resolves the label value for the matched route. Defaults
	// to the raw request path; pass a resolver that returns the registered
	// pattern to keep label cardinality bounded.
	RoutePattern func(ctx handler.Context) string
}

// Metrics creates a Prometheus metrics middleware with default
// configuration, registering on the default registerer.
func Metrics[C handler.Context]() handler.Middleware[C] {
	return MetricsWithConfig[C](MetricsConfig{})
}

// MetricsWithConfig creates a Prometheus metrics middleware with custom
// configuration. It records a request counter by method, route, and status,
// a duration histogram, and an in-flight gauge. Panics if a collector with
// the same name is already registered.
func MetricsWithConfig[C handler.Context](cfg MetricsConfig) handler.Middleware[C] {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "http"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = prometheus.DefBuckets
	}
	if cfg.RoutePattern == nil {
		cfg.RoutePattern = func(ctx handler.Context) string {
			return ctx.Request().URL.Path
		}
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "requests_total",
		Help:      "Total number of handled HTTP requests.",
	}, []string{"method", "route", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   cfg.DurationBuckets,
	}, []string{"method", "route"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	cfg.Registerer.MustRegister(requests, duration, inFlight)

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			method := ctx.Request().Method
			route := cfg.RoutePattern(ctx)

			inFlight.Inc()
			start := time.Now()

			response := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				mw := &metricsWriter{ResponseWriter: w, status: http.StatusOK}
				err := response(mw, r)

				inFlight.Dec()
				duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
				requests.WithLabelValues(method, route, strconv.Itoa(mw.status)).Inc()

				return err
			}
		}
	}
}

// MetricsHandler returns a handler serving the Prometheus text exposition
// format, for registering as a scrape endpoint. Pass prometheus.DefaultGatherer
// unless the middleware was configured with a custom registry.
func MetricsHandler[C handler.Context](g prometheus.Gatherer) handler.HandlerFunc[C] {
	h := promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	return func(ctx C) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error {
			h.ServeHTTP(w, r)
			return nil
		}
	}
}

// metricsWriter captures the response status code.
type metricsWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *metricsWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

func (w *metricsWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
