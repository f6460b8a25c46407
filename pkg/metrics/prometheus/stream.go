// Package prometheus implements the metrics interfaces declared by the
// instrumented packages (stream, session, dcmap, api) on top of the shared
// registry in pkg/metrics. Every constructor returns nil when metrics are
// disabled, which the consumers treat as "collect nothing".
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/streamgate/streamgate/pkg/metrics"
	"github.com/streamgate/streamgate/pkg/stream"
)

// streamMetrics is the Prometheus implementation of stream.Metrics.
type streamMetrics struct {
	streamsStarted   prometheus.Counter
	streamsFinished  *prometheus.CounterVec
	streamDuration   *prometheus.HistogramVec
	streamBytes      prometheus.Histogram
	blocksFetched    *prometheus.CounterVec
	blockBytes       *prometheus.CounterVec
	migrations       *prometheus.CounterVec
	floodWaits       *prometheus.CounterVec
	floodWaitSeconds *prometheus.CounterVec
	refRefreshes     prometheus.Counter
	transientRetries *prometheus.CounterVec
}

// NewStreamMetrics creates a Prometheus-backed stream.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStreamMetrics() stream.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newStreamMetrics(metrics.GetRegistry())
}

func newStreamMetrics(reg prometheus.Registerer) *streamMetrics {
	return &streamMetrics{
		streamsStarted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "streamgate_streams_started_total",
				Help: "Total number of byte streams opened",
			},
		),
		streamsFinished: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_streams_finished_total",
				Help: "Total number of byte streams finished by outcome",
			},
			[]string{"outcome"}, // "done", "aborted_client", "aborted_upstream"
		),
		streamDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "streamgate_stream_duration_seconds",
				Help: "Wall-clock duration of byte streams by outcome",
				Buckets: []float64{
					0.1,  // header-only probes
					0.5,  // small images
					1,    // 1s
					5,    // 5s
					15,   // short clips
					60,   // 1m
					300,  // 5m
					1800, // 30m - full-length playback
					3600, // 1h
					7200, // 2h
				},
			},
			[]string{"outcome"},
		),
		streamBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "streamgate_stream_bytes_sent",
				Help: "Distribution of bytes sent per stream",
				Buckets: []float64{
					65536,      // 64KB - thumbnails
					1048576,    // 1MB
					8388608,    // 8MB - photos, short clips
					67108864,   // 64MB
					268435456,  // 256MB
					1073741824, // 1GB - full videos
					4294967296, // 4GB
				},
			},
		),
		blocksFetched: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_blocks_fetched_total",
				Help: "Total number of blocks fetched from the backend by DC",
			},
			[]string{"dc"},
		),
		blockBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_block_bytes_total",
				Help: "Total bytes fetched from the backend by DC",
			},
			[]string{"dc"},
		),
		migrations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_file_migrations_total",
				Help: "Total FILE_MIGRATE redirects followed, by target DC",
			},
			[]string{"dc"},
		),
		floodWaits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_flood_waits_total",
				Help: "Total FLOOD_WAIT responses during block fetches by DC",
			},
			[]string{"dc"},
		),
		floodWaitSeconds: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_flood_wait_seconds_total",
				Help: "Total server-mandated flood wait by DC",
			},
			[]string{"dc"},
		),
		refRefreshes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "streamgate_reference_refreshes_total",
				Help: "Total file reference refreshes after FILE_REFERENCE_EXPIRED",
			},
		),
		transientRetries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_transient_retries_total",
				Help: "Total retried transport faults during block fetches by DC",
			},
			[]string{"dc"},
		),
	}
}

func (m *streamMetrics) StreamStarted() {
	if m == nil {
		return
	}
	m.streamsStarted.Inc()
}

func (m *streamMetrics) StreamFinished(outcome stream.Outcome, bytes int64, seconds float64) {
	if m == nil {
		return
	}
	m.streamsFinished.WithLabelValues(string(outcome)).Inc()
	m.streamDuration.WithLabelValues(string(outcome)).Observe(seconds)
	if bytes > 0 {
		m.streamBytes.Observe(float64(bytes))
	}
}

func (m *streamMetrics) BlockFetched(dc int, bytes int) {
	if m == nil {
		return
	}
	label := strconv.Itoa(dc)
	m.blocksFetched.WithLabelValues(label).Inc()
	m.blockBytes.WithLabelValues(label).Add(float64(bytes))
}

func (m *streamMetrics) RecordMigration(dc int) {
	if m == nil {
		return
	}
	m.migrations.WithLabelValues(strconv.Itoa(dc)).Inc()
}

func (m *streamMetrics) RecordFloodWait(dc int, wait time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(dc)
	m.floodWaits.WithLabelValues(label).Inc()
	m.floodWaitSeconds.WithLabelValues(label).Add(wait.Seconds())
}

func (m *streamMetrics) RecordReferenceRefresh() {
	if m == nil {
		return
	}
	m.refRefreshes.Inc()
}

func (m *streamMetrics) RecordTransientRetry(dc int) {
	if m == nil {
		return
	}
	m.transientRetries.WithLabelValues(strconv.Itoa(dc)).Inc()
}

// handleCacheMetrics is the Prometheus implementation of stream.CacheMetrics.
type handleCacheMetrics struct {
	lookups *prometheus.CounterVec
	sweeps  prometheus.Counter
	evicted prometheus.Counter
	entries prometheus.Gauge
}

// NewHandleCacheMetrics creates a Prometheus-backed stream.CacheMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHandleCacheMetrics() stream.CacheMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newHandleCacheMetrics(metrics.GetRegistry())
}

func newHandleCacheMetrics(reg prometheus.Registerer) *handleCacheMetrics {
	return &handleCacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamgate_handle_lookups_total",
				Help: "Total handle cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		sweeps: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "streamgate_handle_sweeps_total",
				Help: "Total handle cache sweeps",
			},
		),
		evicted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "streamgate_handle_entries_evicted_total",
				Help: "Total handle cache entries dropped by sweeps",
			},
		),
		entries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "streamgate_handle_cache_entries",
				Help: "Current number of cached file handles",
			},
		),
	}
}

func (m *handleCacheMetrics) HandleHit() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *handleCacheMetrics) HandleMiss() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *handleCacheMetrics) HandleSweep(evicted int) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.evicted.Add(float64(evicted))
}

func (m *handleCacheMetrics) SetHandleEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}
