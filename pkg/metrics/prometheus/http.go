package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/streamgate/streamgate/pkg/api"
	"github.com/streamgate/streamgate/pkg/metrics"
)

// httpMetrics is the Prometheus implementation of api.Metrics. The route
// label carries the chi pattern ("/stream/{chat_id}/{message_id}"), not the
// raw path, so cardinality stays bounded.
type httpMetrics struct {
	inFlight *prometheus.GaugeVec
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.HistogramVec
}

// NewHTTPMetrics creates a Prometheus-backed api.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() api.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newHTTPMetrics(metrics.GetRegistry())
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	return &httpMetrics{
		inFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "streamgate_http_requests_in_flight",
				Help: "Current number of requests being served per route",
			},
			[]string{"route"},
		),
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "streamgate_http_request_duration_seconds",
				Help: "HTTP request duration by method and route",
				Buckets: []float64{
					0.005, // 5ms - cache hits
					0.025, // 25ms
					0.1,   // 100ms - first block fetch
					0.5,   // 500ms
					1,     // 1s
					5,     // 5s
					30,    // 30s
					300,   // 5m - streamed playback
					3600,  // 1h
				},
			},
			[]string{"method", "route"},
		),
		bytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "streamgate_http_response_bytes",
				Help: "Response body size by route",
				Buckets: []float64{
					1024,       // 1KB - JSON endpoints
					65536,      // 64KB
					1048576,    // 1MB
					16777216,   // 16MB
					268435456,  // 256MB
					1073741824, // 1GB
				},
			},
			[]string{"route"},
		),
	}
}

func (m *httpMetrics) RequestStarted(method, route string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(route).Inc()
}

func (m *httpMetrics) RequestFinished(method, route string, status int, bytes int64, seconds float64) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(route).Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(seconds)
	if bytes > 0 {
		m.bytes.WithLabelValues(route).Observe(float64(bytes))
	}
}
