package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// qaRequestsTotal counts completed answer requests, partitioned by
	// outcome: "ok", "bad_request", or "error".
	qaRequestsTotal *prometheus.CounterVec

	// qaDurationSeconds records the wall-clock duration of each answer
	// request, from body decode to response write.
	qaDurationSeconds *prometheus.HistogramVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default,
// keeping unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		qaRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courseta",
			Subsystem: "qa",
			Name:      "requests_total",
			Help:      "Total number of answer requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		qaDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "courseta",
			Subsystem: "qa",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of answer requests, embedding and generation included.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courseta",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "courseta",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "handler"}),
	}
}
