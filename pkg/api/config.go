package api

import (
	"fmt"
	"strings"
	"time"
)

// Config configures the public HTTP server.
//
// This is the listener clients stream from. It carries no per-request
// timeouts beyond the header read: a stream response can legitimately stay
// open for hours.
type Config struct {
	// Host is the listen address.
	// Default: 0.0.0.0
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP port for stream and status endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// PublicURL is the externally visible base URL used when composing
	// stream links in bot replies and usage text. Empty means the server
	// advertises http://host:port.
	PublicURL string `mapstructure:"public_url" yaml:"public_url,omitempty"`

	// ShutdownTimeout is the maximum time to wait for in-flight requests,
	// open streams included, to drain on shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// BaseURL returns the advertised base URL without a trailing slash.
// Wildcard listen addresses are rewritten to localhost so the URL is
// dialable even without PublicURL set.
func (c *Config) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}
