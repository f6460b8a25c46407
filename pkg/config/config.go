package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/streamgate/streamgate/internal/bytesize"
	"github.com/streamgate/streamgate/pkg/api"
	"github.com/streamgate/streamgate/pkg/stream"
	"github.com/streamgate/streamgate/pkg/telegram"
)

// Config represents the streamgate configuration.
//
// This structure captures every static aspect of the gateway:
//   - Server settings (listen address, public URL, shutdown timeout)
//   - Telegram backend credentials and transport selection
//   - Streaming behavior (chunking, retries, rate limits)
//   - Bot reply behavior
//   - Logging configuration
//   - Metrics, telemetry and profiling
//
// Configuration sources (in order of precedence):
//  1. Environment variables (STREAMGATE_*, plus the bare legacy names)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// A missing configuration file is not an error: the gateway runs fine on
// environment variables and defaults alone.
type Config struct {
	// Server configures the public HTTP listener
	Server api.Config `mapstructure:"server" yaml:"server"`

	// Telegram configures the backend connection and credentials
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`

	// Stream controls chunking, retries and pacing of media streams
	Stream StreamConfig `mapstructure:"stream" yaml:"stream"`

	// Bot controls the update responder
	Bot BotConfig `mapstructure:"bot" yaml:"bot"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// TelegramConfig configures the backend connection.
//
// The credentials identify the bot against the real backend. They are not
// needed for the memory transport, which is why validation ties them to the
// transport selection.
type TelegramConfig struct {
	// APIID is the application identifier issued with the API credentials.
	// Override: STREAMGATE_TELEGRAM_API_ID (primary), API_ID (legacy)
	APIID int `mapstructure:"api_id" validate:"required_unless=Transport memory" yaml:"api_id"`

	// APIHash is the application secret issued together with APIID.
	// Override: STREAMGATE_TELEGRAM_API_HASH (primary), API_HASH (legacy)
	APIHash string `mapstructure:"api_hash" validate:"required_unless=Transport memory" yaml:"api_hash,omitempty"`

	// BotToken authenticates the bot account.
	// Override: STREAMGATE_TELEGRAM_BOT_TOKEN (primary), BOT_TOKEN (legacy)
	BotToken string `mapstructure:"bot_token" validate:"required_unless=Transport memory" yaml:"bot_token,omitempty"`

	// SessionDir is the directory holding the per-DC session files
	// (session_dc{N}.json). Empty selects the default state directory
	// ($XDG_STATE_HOME/streamgate/sessions).
	// Override: STREAMGATE_TELEGRAM_SESSION_DIR (primary), SESSION_DIR (legacy)
	SessionDir string `mapstructure:"session_dir" yaml:"session_dir"`

	// HomeDC pins the home data center. 0 trusts whatever the persisted
	// session file says, which is the right choice except on first run
	// against a non-default DC.
	// Valid values: 0 or 1-5
	HomeDC int `mapstructure:"home_dc" validate:"omitempty,min=1,max=5" yaml:"home_dc"`

	// TestMode connects to the backend's test environment
	// Default: false
	TestMode bool `mapstructure:"test_mode" yaml:"test_mode"`

	// Transport selects the registered backend transport.
	// The repository ships "memory"; an MTProto implementation registers
	// under its own name.
	// Default: "memory"
	Transport string `mapstructure:"transport" validate:"required" yaml:"transport"`

	// Memory holds the options for the memory transport, most importantly
	// the seed list of virtual files:
	//   memory:
	//     seed:
	//       - {chat_id: 1, message_id: 1, size: 3000000, file_name: movie.mkv}
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`
}

// TransportConfig converts the telegram section into the transport
// factory's configuration.
func (c *TelegramConfig) TransportConfig() telegram.TransportConfig {
	return telegram.TransportConfig{
		APIID:      c.APIID,
		APIHash:    c.APIHash,
		BotToken:   c.BotToken,
		SessionDir: c.SessionDir,
		HomeDC:     c.HomeDC,
		TestMode:   c.TestMode,
		Options:    c.TransportOptions(),
	}
}

// TransportOptions returns the option block for the selected transport.
func (c *TelegramConfig) TransportOptions() map[string]any {
	if c.Transport == "memory" {
		return c.Memory
	}
	return nil
}

// StreamConfig controls chunking, retries and pacing of media streams.
type StreamConfig struct {
	// ChunkSize is the fetch block size. Must be a multiple of 4096 and at
	// most 1MiB; the backend rejects anything else.
	// Supports human-readable formats: "1MiB", "512KiB", or plain bytes.
	// Default: 1MiB
	ChunkSize bytesize.ByteSize `mapstructure:"chunk_size" yaml:"chunk_size,omitempty"`

	// HandleSweepInterval is how often the decoded file handle cache is
	// cleared wholesale.
	// Default: 30m
	HandleSweepInterval time.Duration `mapstructure:"handle_sweep_interval" yaml:"handle_sweep_interval"`

	// BlockTimeout bounds a single block fetch, including its retries on
	// the same DC.
	// Default: 30s
	BlockTimeout time.Duration `mapstructure:"block_timeout" yaml:"block_timeout"`

	// FloodWaitCap is the longest flood wait honored inline. Longer waits
	// park the DC and fail the request instead of sleeping.
	// Default: 30s
	FloodWaitCap time.Duration `mapstructure:"flood_wait_cap" yaml:"flood_wait_cap"`

	// MaxMigrations caps how many FILE_MIGRATE redirects one stream follows.
	// Default: 3
	MaxMigrations int `mapstructure:"max_migrations" yaml:"max_migrations"`

	// MaxTransientRetries caps retries of a block fetch after transport
	// faults.
	// Default: 5
	MaxTransientRetries int `mapstructure:"max_transient_retries" yaml:"max_transient_retries"`

	// MaxReferenceRefreshes caps how often a stream re-fetches the message
	// after FILE_REFERENCE_EXPIRED.
	// Default: 2
	MaxReferenceRefreshes int `mapstructure:"max_reference_refreshes" yaml:"max_reference_refreshes"`

	// GetFileRate is the global backend fetch budget in requests per
	// second, shared by all streams. 0 disables pacing.
	// Default: 30
	GetFileRate float64 `mapstructure:"get_file_rate" validate:"omitempty,gte=0" yaml:"get_file_rate"`
}

// StreamerConfig converts the stream section into the streamer's config.
func (c *StreamConfig) StreamerConfig() stream.Config {
	return stream.Config{
		ChunkSize:             c.ChunkSize.Int64(),
		BlockTimeout:          c.BlockTimeout,
		FloodWaitCap:          c.FloodWaitCap,
		MaxMigrations:         c.MaxMigrations,
		MaxTransientRetries:   c.MaxTransientRetries,
		MaxReferenceRefreshes: c.MaxReferenceRefreshes,
		GetFileRate:           c.GetFileRate,
	}
}

// BotConfig controls the update responder.
type BotConfig struct {
	// RepliesEnabled controls whether the bot answers incoming messages
	// with stream links and usage text. Streaming itself is unaffected.
	// Default: true
	RepliesEnabled *bool `mapstructure:"replies_enabled" yaml:"replies_enabled"`
}

// IsRepliesEnabled returns whether bot replies are enabled (default true).
func (c *BotConfig) IsRepliesEnabled() bool {
	return c.RepliesEnabled == nil || *c.RepliesEnabled
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	// Set to false in production with a TLS-enabled collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// 1.0 = sample all traces, 0.5 = sample 50%, 0.0 = no sampling
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
// When enabled, CPU and memory profiles are continuously sent to a Pyroscope
// server for flame graph visualization and performance analysis.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL).
	// Required when profiling is enabled.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	// Default: ["cpu", "inuse_space"]
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	// Default: true
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// IsEnabled returns whether metrics are enabled (default true).
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (STREAMGATE_*, plus the bare legacy names)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read the configuration file if present. A missing file is fine: the
	// environment and defaults cover every key.
	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
//
// Unlike Load, an explicitly requested config file must exist. With no
// explicit path the default location is used when present and skipped
// otherwise, so an env-only deployment works without any file at all.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: User-friendly error with instructions
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  streamgate init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with restricted permissions (0600 = owner read/write only).
	// This is important because config files carry the bot token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// envKeys lists every structured key resolvable from the environment.
// AutomaticEnv only covers keys viper already knows from a file or default,
// so each key is bound explicitly to keep env-only operation working.
var envKeys = []string{
	"server.host",
	"server.port",
	"server.public_url",
	"server.shutdown_timeout",
	"telegram.api_id",
	"telegram.api_hash",
	"telegram.bot_token",
	"telegram.session_dir",
	"telegram.home_dc",
	"telegram.test_mode",
	"telegram.transport",
	"stream.chunk_size",
	"stream.handle_sweep_interval",
	"stream.block_timeout",
	"stream.flood_wait_cap",
	"stream.max_migrations",
	"stream.max_transient_retries",
	"stream.max_reference_refreshes",
	"stream.get_file_rate",
	"bot.replies_enabled",
	"logging.level",
	"logging.format",
	"logging.output",
	"metrics.enabled",
	"metrics.port",
	"telemetry.enabled",
	"telemetry.endpoint",
	"telemetry.insecure",
	"telemetry.sample_rate",
	"profiling.enabled",
	"profiling.endpoint",
	"profiling.profile_types",
}

// legacyEnvAliases maps the bare environment names of the original
// deployment scheme onto their structured keys. The STREAMGATE_ form wins
// when both are set.
var legacyEnvAliases = map[string]string{
	"API_ID":      "telegram.api_id",
	"API_HASH":    "telegram.api_hash",
	"BOT_TOKEN":   "telegram.bot_token",
	"SESSION_DIR": "telegram.session_dir",
	"HOME_DC":     "telegram.home_dc",
	"HOST":        "server.host",
	"PORT":        "server.port",
	"URL":         "server.public_url",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use STREAMGATE_ prefix and underscores
	// Example: STREAMGATE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("STREAMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	for alias, key := range legacyEnvAliases {
		_ = v.BindEnv(key, alias)
	}

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/streamgate/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use env and defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			// Config file not found is acceptable - use env and defaults
			return false, nil
		}
		// Other errors are problems
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize, time.Duration and comma-separated list parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize. This enables config files to use human-readable
// sizes like "1MiB", "512KiB", "100KB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to ByteSize
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse human-readable string like "1MiB", "512KiB", "100KB"
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "streamgate")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "streamgate")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
