package telemetry

import "github.com/streamgate/streamgate/pkg/version"

// Config controls the OTLP trace pipeline.
type Config struct {
	// Enabled gates the whole pipeline. When false, Init installs nothing
	// and the span helpers are no-ops.
	Enabled bool

	// ServiceName identifies this process in the trace backend.
	ServiceName string

	// ServiceVersion stamps every span with the build that produced it.
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector address as host:port.
	Endpoint string

	// Insecure disables TLS on the collector connection. Fine for a
	// localhost collector, wrong for anything crossing a network.
	Insecure bool

	// SampleRate is the fraction of new traces to keep, 0.0 through 1.0.
	// Spans under a sampled parent are always kept so traces stay whole.
	SampleRate float64
}

// ProfilingConfig controls continuous profiling via Pyroscope.
type ProfilingConfig struct {
	Enabled bool

	// ServiceName is the application name shown in Pyroscope.
	ServiceName string

	// ServiceVersion is attached as a tag so profiles can be compared
	// across releases.
	ServiceVersion string

	// Endpoint is the Pyroscope server URL, e.g. "http://localhost:4040".
	Endpoint string

	// ProfileTypes selects what to collect. See profileTypes for the
	// accepted names.
	ProfileTypes []string
}

// DefaultConfig returns trace settings aimed at a local collector, with
// the pipeline itself switched off.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "streamgate",
		ServiceVersion: version.Version,
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
