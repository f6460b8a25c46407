package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/streamgate/streamgate/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	cfg.Server.ApplyDefaults()
	applyTelegramDefaults(&cfg.Telegram)
	applyStreamDefaults(&cfg.Stream)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyProfilingDefaults(&cfg.Profiling)
}

// applyTelegramDefaults sets backend connection defaults.
func applyTelegramDefaults(cfg *TelegramConfig) {
	if cfg.Transport == "" {
		cfg.Transport = "memory"
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = GetDefaultSessionDir()
	}
	// Credentials and HomeDC have no defaults; 0 means trust the persisted
	// session file.
}

// applyStreamDefaults sets streaming defaults.
func applyStreamDefaults(cfg *StreamConfig) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = bytesize.ByteSize(bytesize.MiB) // 1 MiB
	}
	if cfg.HandleSweepInterval == 0 {
		cfg.HandleSweepInterval = 30 * time.Minute
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 30 * time.Second
	}
	if cfg.FloodWaitCap == 0 {
		cfg.FloodWaitCap = 30 * time.Second
	}
	if cfg.MaxMigrations == 0 {
		cfg.MaxMigrations = 3
	}
	if cfg.MaxTransientRetries == 0 {
		cfg.MaxTransientRetries = 5
	}
	if cfg.MaxReferenceRefreshes == 0 {
		cfg.MaxReferenceRefreshes = 2
	}
	if cfg.GetFileRate == 0 {
		cfg.GetFileRate = 30
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to true (nil pointer reads as enabled)
	if cfg.IsEnabled() && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)
	// No need to set, zero value is false

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Enabled defaults to false (opt-in for profiling)
	// Endpoint has no default - it's required when profiling is enabled

	// Default profile types cover CPU time and retained memory
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"inuse_space",
		}
	}
}

// GetDefaultSessionDir returns the default directory for DC session files.
//
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state, or falls back to the
// current directory if the home directory cannot be determined.
func GetDefaultSessionDir() string {
	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, "streamgate", "sessions")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "sessions"
	}

	return filepath.Join(home, ".local", "state", "streamgate", "sessions")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
