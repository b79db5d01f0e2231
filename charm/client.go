// ABOUTME: Charm KV client wrapper with automatic sync support
// ABOUTME: Serializes access to the KV and pushes local writes to the server when auto-sync is on

package charm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"
)

// ErrKeyNotFound is returned by Get for keys that do not exist.
var ErrKeyNotFound = errors.New("key not found")

// backend is the subset of *kv.KV the client uses.
type backend interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

// Client wraps charm KV with config and sync helpers.
type Client struct {
	kv     backend
	config *Config
	logger *log.Logger
	remote bool
	mu     sync.RWMutex
}

// InitClient opens the process-wide client once.
func InitClient(cfg *Config, logger *log.Logger) error {
	clientOnce.Do(func() {
		globalClient, clientErr = NewClient(cfg, logger)
	})
	return clientErr
}

// GetClient returns the process-wide client opened by InitClient.
func GetClient() (*Client, error) {
	if clientErr != nil {
		return nil, clientErr
	}
	if globalClient == nil {
		return nil, fmt.Errorf("charm client not initialized")
	}
	return globalClient, nil
}

// NewClient opens the charm KV database for AppName on cfg.Host.
func NewClient(cfg *Config, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
		logger: logger.WithPrefix("charm"),
		remote: true,
	}

	// Pull remote changes before the first read.
	if cfg.AutoSync {
		if err := db.Sync(); err != nil {
			c.logger.Warn("initial sync failed", "host", cfg.Host, "err", err)
		}
	}

	return c, nil
}

// Close is a no-op; charm/kv does not expose Close and badger is released on exit.
func (c *Client) Close() error {
	return nil
}

// Config returns the client's config.
func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.remote {
		return "test-device", nil
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// IsConnected reports whether the charm server knows this device.
func (c *Client) IsConnected() bool {
	_, err := c.ID()
	return err == nil
}

// Sync pulls remote changes and pushes local ones.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

// Get retrieves a value by key. Missing keys yield ErrKeyNotFound.
func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, err := c.kv.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrKeyNotFound)
	}
	return value, err
}

// Set stores a value and syncs if enabled.
func (c *Client) Set(key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Set(key, value); err != nil {
		return err
	}
	c.autoSync()
	return nil
}

// Delete removes a key and syncs if enabled.
func (c *Client) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete(key); err != nil {
		return err
	}
	c.autoSync()
	return nil
}

// autoSync must be called with mu held.
func (c *Client) autoSync() {
	if !c.config.AutoSync {
		return
	}
	// The write is already durable locally; the next poll retries the push.
	if err := c.kv.Sync(); err != nil {
		c.logger.Warn("sync after write failed", "err", err)
	}
}

// Keys returns all keys.
func (c *Client) Keys() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Keys()
}

// KeysWithPrefix returns all keys starting with prefix, in key order.
func (c *Client) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	allKeys, err := c.Keys()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range allKeys {
		if bytes.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Reset wipes all data from the KV store.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}
