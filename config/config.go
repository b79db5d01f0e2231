// ABOUTME: Application configuration loaded from JSONC, .env, and PROSPEKT_* variables
// ABOUTME: Resolves XDG paths, builds the logger, and saves atomically with a stable device id
package config

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"
	"github.com/tailscale/hujson"

	"github.com/harperreed/prospekt/charm"
)

const (
	AppName = "prospekt"

	BackendCharm  = "charm"
	BackendSQLite = "sqlite"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PROSPEKT_"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigInvalid  = errors.New("invalid config")
)

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds all configuration options.
type Config struct {
	Backend       string   `json:"backend"`
	DBPath        string   `json:"db_path,omitempty"`
	CharmHost     string   `json:"charm_host,omitempty"`
	AutoSync      bool     `json:"auto_sync"`
	PollInterval  Duration `json:"poll_interval,omitempty"`
	Collation     string   `json:"collation,omitempty"`
	ExtraStatuses []string `json:"extra_statuses,omitempty"`
	LogLevel      string   `json:"log_level,omitempty"`
	DeviceID      string   `json:"device_id,omitempty"`

	// Path is where the config was loaded from and where Save writes.
	Path string `json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:      BackendCharm,
		AutoSync:     true,
		PollInterval: Duration(5 * time.Second),
		Collation:    "sv",
		LogLevel:     "info",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/prospekt/config.json.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.json")
}

// DataDir is $XDG_DATA_HOME/prospekt.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultDBPath is where the SQLite backend keeps its file.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), AppName+".db")
}

// LogPath is where the terminal UI writes its log.
func LogPath() string {
	return filepath.Join(xdg.StateHome, AppName, AppName+".log")
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	// ConfigPath is an explicit config file that must exist. Empty uses DefaultPath.
	ConfigPath string
	// DotEnvPath is an optional .env file. Empty means ".env" in the working directory.
	DotEnvPath string
	// Env holds environment variables; nil reads the process environment.
	Env map[string]string
}

// Load builds the configuration with this precedence, highest last:
// defaults, config file, .env file, process environment.
func Load(in LoadInput) (*Config, error) {
	cfg := Default()

	path := in.ConfigPath
	mustExist := path != ""
	if path == "" {
		path = DefaultPath()
	}
	cfg.Path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := parse(data, cfg); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
		}
	case os.IsNotExist(err) && !mustExist:
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	env, err := environment(in)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// environment merges the .env file under the real environment.
func environment(in LoadInput) (map[string]string, error) {
	env := map[string]string{}

	dotenv := in.DotEnvPath
	if dotenv == "" {
		dotenv = ".env"
	}
	if _, err := os.Stat(dotenv); err == nil {
		values, err := godotenv.Read(dotenv)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dotenv, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}

	if in.Env != nil {
		for k, v := range in.Env {
			env[k] = v
		}
		return env, nil
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

func (c *Config) applyEnv(env map[string]string) error {
	if v, ok := env[EnvPrefix+"BACKEND"]; ok && v != "" {
		c.Backend = v
	}
	if v, ok := env[EnvPrefix+"DB_PATH"]; ok && v != "" {
		c.DBPath = v
	}
	if v, ok := env[EnvPrefix+"CHARM_HOST"]; ok && v != "" {
		c.CharmHost = v
	}
	if v, ok := env[EnvPrefix+"AUTO_SYNC"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sAUTO_SYNC=%q", ErrConfigInvalid, EnvPrefix, v)
		}
		c.AutoSync = b
	}
	if v, ok := env[EnvPrefix+"POLL_INTERVAL"]; ok && v != "" {
		if err := c.PollInterval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%w: %sPOLL_INTERVAL=%q", ErrConfigInvalid, EnvPrefix, v)
		}
	}
	if v, ok := env[EnvPrefix+"COLLATION"]; ok && v != "" {
		c.Collation = v
	}
	if v, ok := env[EnvPrefix+"EXTRA_STATUSES"]; ok && v != "" {
		c.ExtraStatuses = nil
		for _, label := range strings.Split(v, ",") {
			if label = strings.TrimSpace(label); label != "" {
				c.ExtraStatuses = append(c.ExtraStatuses, label)
			}
		}
	}
	if v, ok := env[EnvPrefix+"LOG_LEVEL"]; ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := env[EnvPrefix+"DEVICE_ID"]; ok && v != "" {
		c.DeviceID = v
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCharm, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown backend %q (want %s or %s)", ErrConfigInvalid, c.Backend, BackendCharm, BackendSQLite)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll_interval must not be negative", ErrConfigInvalid)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrConfigInvalid, c.LogLevel)
	}
	return nil
}

// Interval returns the poll interval as a time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.PollInterval)
}

// Charm returns the connection settings for the Charm backend.
func (c *Config) Charm() *charm.Config {
	return charm.NewConfig(c.CharmHost, c.AutoSync)
}

// Logger returns a leveled logger writing to w, tagged with the device id.
func (c *Config) Logger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          AppName,
	})
	if c.DeviceID != "" {
		logger = logger.With("device", c.DeviceID)
	}
	return logger
}

// Save writes the config to Path, assigning a device id on first save.
func (c *Config) Save() error {
	if c.Path == "" {
		c.Path = DefaultPath()
	}
	if c.DeviceID == "" {
		c.DeviceID = NewDeviceID()
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(c.Path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config %s: %w", c.Path, err)
	}
	return nil
}

// NewDeviceID returns a fresh ULID.
func NewDeviceID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
