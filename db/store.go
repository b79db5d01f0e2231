// ABOUTME: Prospect store on the SQLite documents table with polling subscriptions
// ABOUTME: Uses PRAGMA data_version to skip re-reading when no other connection committed
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

// StoreOptions configures a Store.
type StoreOptions struct {
	PollInterval time.Duration
	Logger       *log.Logger
}

type listCache struct {
	version uint64
	local   uint64
	records []models.Prospect
}

// Store implements store.Store on a SQLite database.
type Store struct {
	db     *sql.DB
	poller *store.Poller
	logger *log.Logger

	mu    sync.Mutex
	local uint64
	cache map[string]listCache
}

// Open opens the database at path and returns a Store that owns it.
func Open(path string, opts StoreOptions) (*Store, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewStore(db, opts), nil
}

// NewStore wraps an open database.
func NewStore(db *sql.DB, opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		db:     db,
		logger: logger.WithPrefix("sqlite-store"),
		cache:  make(map[string]listCache),
	}
	s.poller = store.NewPoller(s.list, store.PollerOptions{
		Interval: opts.PollInterval,
		Logger:   logger,
	})
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Subscribe implements store.Store.
func (s *Store) Subscribe(ctx context.Context, collection string, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) (store.Subscription, error) {
	return s.poller.Subscribe(ctx, collection, onSnapshot, onError)
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, collection string, fields models.Fields) (string, error) {
	if err := store.CheckCollection(collection); err != nil {
		return "", err
	}
	body, err := store.NewDocument(fields)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.insert(ctx, collection, id, body); err != nil {
		return "", err
	}
	return id, nil
}

// Import writes p under its own id, replacing any existing document.
func (s *Store) Import(ctx context.Context, collection string, p models.Prospect) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	body, err := store.NewDocument(p.ToMap())
	if err != nil {
		return err
	}
	return s.insert(ctx, collection, p.ID, body)
}

func (s *Store) insert(ctx context.Context, collection, id string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, seq, body)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM documents), ?)
		ON CONFLICT(collection, id) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, collection, id, string(body))
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	s.changed()
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, patch models.Fields) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update %s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	updated, err := store.ApplyPatch([]byte(body), patch)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET body = ?, updated_at = CURRENT_TIMESTAMP
		WHERE collection = ? AND id = ?
	`, string(updated), collection, id); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	s.changed()
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, store.ErrNotFound)
	}
	s.changed()
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (models.Prospect, error) {
	if err := store.CheckCollection(collection); err != nil {
		return models.Prospect{}, err
	}
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Prospect{}, fmt.Errorf("get %s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return models.Prospect{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	p, err := models.FromDocument(id, []byte(body))
	if err != nil {
		return models.Prospect{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return p, nil
}

// All lists a collection once, in creation order.
func (s *Store) All(ctx context.Context, collection string) ([]models.Prospect, error) {
	return s.list(ctx, collection)
}

// changed records a local write and wakes subscriptions.
func (s *Store) changed() {
	s.mu.Lock()
	s.local++
	s.mu.Unlock()
	s.poller.Notify()
}

func (s *Store) list(ctx context.Context, collection string) ([]models.Prospect, error) {
	var version uint64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&version); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	s.mu.Lock()
	local := s.local
	cached, ok := s.cache[collection]
	s.mu.Unlock()
	if ok && cached.version == version && cached.local == local {
		return cloneAll(cached.records), nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM documents WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Prospect
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		p, err := models.FromDocument(id, []byte(body))
		if err != nil {
			s.logger.Warn("skipping unreadable document", "collection", collection, "id", id, "err", err)
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if out == nil {
		out = []models.Prospect{}
	}

	s.mu.Lock()
	s.cache[collection] = listCache{version: version, local: local, records: cloneAll(out)}
	s.mu.Unlock()
	return out, nil
}

func cloneAll(in []models.Prospect) []models.Prospect {
	out := make([]models.Prospect, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
