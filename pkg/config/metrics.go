package config

import (
	"github.com/streamgate/streamgate/pkg/api"
	"github.com/streamgate/streamgate/pkg/metrics"
	metricsprom "github.com/streamgate/streamgate/pkg/metrics/prometheus"
	"github.com/streamgate/streamgate/pkg/stream"
	"github.com/streamgate/streamgate/pkg/telegram/dcmap"
	"github.com/streamgate/streamgate/pkg/telegram/session"
)

// MetricsResult carries the metrics listener and the per-component
// collectors created from the configuration.
//
// When metrics are disabled, Server and every collector are nil;
// instrumented components treat a nil collector as "don't collect".
type MetricsResult struct {
	// Server is the Prometheus metrics HTTP server (nil when disabled)
	Server *metrics.Server

	// HTTP collects request counts, durations and response sizes
	HTTP api.Metrics

	// Stream collects block fetches, retries and stream outcomes
	Stream stream.Metrics

	// HandleCache collects file handle cache hits, misses and sweeps
	HandleCache stream.CacheMetrics

	// Session collects per-DC session lifecycle and flood waits
	Session session.Metrics

	// DCMap collects the file-to-DC mapping distribution
	DCMap dcmap.Metrics
}

// InitializeMetrics sets up the Prometheus registry, the collectors and the
// metrics listener according to the configuration.
//
// Call this before constructing the components that consume the collectors,
// so collection is live from the first request.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.IsEnabled() {
		return MetricsResult{}
	}

	metrics.InitRegistry()

	return MetricsResult{
		Server:      metrics.NewServer(cfg.Metrics.Port),
		HTTP:        metricsprom.NewHTTPMetrics(),
		Stream:      metricsprom.NewStreamMetrics(),
		HandleCache: metricsprom.NewHandleCacheMetrics(),
		Session:     metricsprom.NewSessionMetrics(),
		DCMap:       metricsprom.NewDCMapMetrics(),
	}
}
