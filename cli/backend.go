// ABOUTME: Backend selection and session setup shared by all commands
// ABOUTME: Opens the configured store and wraps it in a list session that has seen its first snapshot
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/prospekt/charm"
	"github.com/harperreed/prospekt/config"
	"github.com/harperreed/prospekt/db"
	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/store"
)

// FirstSnapshotTimeout bounds how long commands wait for the initial listing.
const FirstSnapshotTimeout = 15 * time.Second

// Backend is an open record store plus what it needs to be released.
type Backend struct {
	Store  store.Store
	Client *charm.Client
	close  func() error
}

// Close releases the store.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend opens the store named by cfg.Backend.
func OpenBackend(cfg *config.Config, logger *log.Logger) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err := db.Open(cfg.DBPath, db.StoreOptions{PollInterval: cfg.Interval(), Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("using sqlite backend", "path", cfg.DBPath)
		return &Backend{Store: st, close: st.Close}, nil

	case config.BackendCharm:
		client, err := OpenCharm(cfg, logger)
		if err != nil {
			return nil, err
		}
		st := charm.NewStore(client, charm.StoreOptions{PollInterval: cfg.Interval(), Logger: logger})
		logger.Debug("using charm backend", "host", client.Config().Host)
		return &Backend{Store: st, Client: client, close: client.Close}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// OpenCharm returns the process-wide charm client.
func OpenCharm(cfg *config.Config, logger *log.Logger) (*charm.Client, error) {
	if err := charm.InitClient(cfg.Charm(), logger); err != nil {
		return nil, fmt.Errorf("failed to open charm: %w", err)
	}
	return charm.GetClient()
}

// SessionOptions builds list options from cfg.
func SessionOptions(cfg *config.Config, logger *log.Logger, metrics *listview.Metrics) ([]listview.Option, error) {
	deriver, err := listview.ParseDeriver(cfg.Collation)
	if err != nil {
		return nil, fmt.Errorf("invalid collation %q: %w", cfg.Collation, err)
	}
	return []listview.Option{
		listview.WithLogger(logger),
		listview.WithMetrics(metrics),
		listview.WithCatalog(listview.NewCatalog(cfg.ExtraStatuses...)),
		listview.WithDeriver(deriver),
	}, nil
}

// OpenSession opens a session on st and waits for the first snapshot.
func OpenSession(ctx context.Context, st store.Store, opts ...listview.Option) (*listview.Session, error) {
	sess, err := listview.OpenSession(ctx, st, opts...)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, FirstSnapshotTimeout)
	defer cancel()
	if err := sess.Wait(waitCtx); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("failed to load prospects: %w", err)
	}
	return sess, nil
}

// WithSession opens the configured backend and a session on it, runs fn, and
// closes both. metrics may be nil.
func WithSession(ctx context.Context, cfg *config.Config, logger *log.Logger, metrics *listview.Metrics, fn func(*listview.Session) error) error {
	backend, err := OpenBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("failed to close backend", "err", err)
		}
	}()

	opts, err := SessionOptions(cfg, logger, metrics)
	if err != nil {
		return err
	}
	sess, err := OpenSession(ctx, backend.Store, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	return fn(sess)
}
