package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented configuration written by InitConfig. It
// loads cleanly as-is: the memory transport needs no credentials, so a
// fresh install can start streaming seeded files immediately.
const sampleConfig = `# Streamgate Configuration File
#
# Republishes media stored in Telegram chats as streamable HTTP URLs.
# Every key can also be set through the environment with the STREAMGATE_
# prefix, e.g. STREAMGATE_SERVER_PORT=8081. The bare legacy names API_ID,
# API_HASH, BOT_TOKEN, HOST, PORT, URL, SESSION_DIR and HOME_DC keep
# working as well.

# Public HTTP server.
server:
  host: 0.0.0.0
  port: 8080
  # Externally visible base URL used in bot replies. Defaults to
  # http://host:port when unset.
  # public_url: https://stream.example.com
  shutdown_timeout: 30s

# Telegram backend.
telegram:
  # Credentials from https://my.telegram.org and @BotFather. Required for
  # the mtproto transport, ignored by the memory transport.
  api_id: 0
  api_hash: ""
  bot_token: ""
  # Directory for the per-DC session files. Defaults to
  # $XDG_STATE_HOME/streamgate/sessions.
  # session_dir: /var/lib/streamgate/sessions
  home_dc: 0 # 0 = trust the persisted session file
  test_mode: false
  # "memory" serves seeded virtual files and is intended for development
  # and tests. Install an MTProto transport module for production.
  transport: memory
  # memory:
  #   seed:
  #     - {chat_id: 1, message_id: 1, size: 3000000, file_name: movie.mkv, mime: video/x-matroska}

# Media streaming.
stream:
  chunk_size: 1MiB # multiple of 4096, at most 1MiB
  handle_sweep_interval: 30m
  block_timeout: 30s
  flood_wait_cap: 30s
  max_migrations: 3
  max_transient_retries: 5
  max_reference_refreshes: 2
  get_file_rate: 30 # backend fetches per second across all streams, 0 = unlimited

# Bot replies.
bot:
  replies_enabled: true

# Logging.
logging:
  level: INFO # DEBUG, INFO, WARN, ERROR
  format: text # text, json
  output: stdout # stdout, stderr, or a file path

# Prometheus metrics, served on a separate listener.
metrics:
  enabled: true
  port: 9090

# OpenTelemetry tracing.
telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0

# Pyroscope continuous profiling.
profiling:
  enabled: false
  # endpoint: http://localhost:4040
  profile_types:
    - cpu
    - inuse_space
`

// InitConfig creates a sample configuration file at the default location.
//
// Returns the path of the written file. Refuses to overwrite an existing
// file unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
//
// Parent directories are created as needed. Refuses to overwrite an
// existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the file may carry the bot token once the user fills it in.
	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
