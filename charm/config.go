// ABOUTME: Connection settings for the Charm KV backend
// ABOUTME: Built from application config; holds server host, auto-sync, and staleness settings

package charm

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the Charm KV database.
	AppName = "prospekt"
)

// Config holds charm connection settings.
type Config struct {
	// Host is the charm server hostname.
	Host string `json:"host,omitempty"`

	// AutoSync pushes every local write to the server immediately.
	AutoSync bool `json:"auto_sync"`

	// StaleThreshold is how old local data may get before a sync is forced.
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

// NewConfig returns a config for host, falling back to defaults for empty values.
func NewConfig(host string, autoSync bool) *Config {
	cfg := DefaultConfig()
	if host = strings.TrimSpace(host); host != "" {
		cfg.Host = host
	}
	cfg.AutoSync = autoSync
	return cfg
}

// Validate rejects hosts that carry a scheme or path.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("charm host is empty")
	}
	if strings.Contains(c.Host, "://") || strings.Contains(c.Host, "/") {
		return fmt.Errorf("charm host %q must be a bare hostname", c.Host)
	}
	if c.StaleThreshold < 0 {
		return fmt.Errorf("stale threshold must not be negative")
	}
	return nil
}
