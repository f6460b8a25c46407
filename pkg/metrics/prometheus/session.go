package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/streamgate/streamgate/pkg/metrics"
	"github.com/streamgate/streamgate/pkg/telegram/dcmap"
	"github.com/streamgate/streamgate/pkg/telegram/session"
)

// sessionMetrics is the Prometheus implementation of session.Metrics.
type sessionMetrics struct {
	created        *prometheus.CounterVec
	closed         *prometheus.CounterVec
	active         prometheus.Gauge
	backoffs       *prometheus.CounterVec
	backoffSeconds *prometheus.CounterVec
	authRetries    *prometheus.CounterVec
}

// NewSessionMetrics creates a Prometheus-backed session.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSessionMetrics() session.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newSessionMetrics(metrics.GetRegistry())
}

func newSessionMetrics(reg prometheus.Registerer) *sessionMetrics {
	return &sessionMetrics{
		created: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_sessions_created_total",
				Help: "Total media sessions created by DC and home flag",
			},
			[]string{"dc", "home"},
		),
		closed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_sessions_closed_total",
				Help: "Total media sessions closed by DC",
			},
			[]string{"dc"},
		),
		active: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "streamgate_active_sessions",
				Help: "Current number of live media sessions",
			},
		),
		backoffs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_dc_backoffs_total",
				Help: "Total flood-wait deadlines recorded by DC",
			},
			[]string{"dc"},
		),
		backoffSeconds: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_dc_backoff_seconds_total",
				Help: "Total server-mandated back-off by DC",
			},
			[]string{"dc"},
		),
		authRetries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_auth_import_retries_total",
				Help: "Total authorization import retries after AUTH_BYTES_INVALID by DC",
			},
			[]string{"dc"},
		),
	}
}

func (m *sessionMetrics) SessionCreated(dc int, home bool) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(strconv.Itoa(dc), strconv.FormatBool(home)).Inc()
}

func (m *sessionMetrics) SessionClosed(dc int) {
	if m == nil {
		return
	}
	m.closed.WithLabelValues(strconv.Itoa(dc)).Inc()
}

func (m *sessionMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}

func (m *sessionMetrics) RecordBackoff(dc int, wait time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(dc)
	m.backoffs.WithLabelValues(label).Inc()
	m.backoffSeconds.WithLabelValues(label).Add(wait.Seconds())
}

func (m *sessionMetrics) RecordAuthRetry(dc int) {
	if m == nil {
		return
	}
	m.authRetries.WithLabelValues(strconv.Itoa(dc)).Inc()
}

// dcmapMetrics is the Prometheus implementation of dcmap.Metrics.
type dcmapMetrics struct {
	trackedFiles prometheus.Gauge
	dcFiles      *prometheus.GaugeVec
}

// NewDCMapMetrics creates a Prometheus-backed dcmap.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDCMapMetrics() dcmap.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newDCMapMetrics(metrics.GetRegistry())
}

func newDCMapMetrics(reg prometheus.Registerer) *dcmapMetrics {
	return &dcmapMetrics{
		trackedFiles: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "streamgate_tracked_files",
				Help: "Current number of files with a memoised DC",
			},
		),
		dcFiles: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "streamgate_dc_files",
				Help: "Current number of memoised files per DC",
			},
			[]string{"dc"},
		),
	}
}

func (m *dcmapMetrics) SetTrackedFiles(total int) {
	if m == nil {
		return
	}
	m.trackedFiles.Set(float64(total))
}

func (m *dcmapMetrics) SetDCFiles(dc, n int) {
	if m == nil {
		return
	}
	m.dcFiles.WithLabelValues(strconv.Itoa(dc)).Set(float64(n))
}
