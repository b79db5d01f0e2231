// ABOUTME: Prospect store backed by Charm KV with polling snapshot subscriptions
// ABOUTME: Documents live under "<collection>/<id>" keys; ids are time-ordered UUIDs

package charm

import (
	"context"
	"errors"
	"fmt"
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

// Store implements store.Store on a charm Client.
type Store struct {
	client *Client
	poller *store.Poller
	logger *log.Logger
}

// NewStore wraps c. Subscriptions sync with the server every poll interval.
func NewStore(c *Client, opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{client: c, logger: logger.WithPrefix("charm-store")}
	s.poller = store.NewPoller(s.list, store.PollerOptions{
		Interval: opts.PollInterval,
		Refresh:  s.refresh,
		Logger:   logger,
	})
	return s
}

func docKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
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
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := store.NewDocument(fields)
	if err != nil {
		return "", err
	}
	uid, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	id := uid.String()
	if err := s.client.Set(docKey(collection, id), body); err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	s.poller.Notify()
	return id, nil
}

// Import writes p under its own id, replacing any existing document.
func (s *Store) Import(ctx context.Context, collection string, p models.Prospect) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := store.NewDocument(p.ToMap())
	if err != nil {
		return err
	}
	if err := s.client.Set(docKey(collection, p.ID), body); err != nil {
		return fmt.Errorf("import %s/%s: %w", collection, p.ID, err)
	}
	s.poller.Notify()
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, patch models.Fields) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := docKey(collection, id)
	body, err := s.client.Get(key)
	if err != nil {
		return s.wrap("update", collection, id, err)
	}
	updated, err := store.ApplyPatch(body, patch)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if err := s.client.Set(key, updated); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	s.poller.Notify()
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := docKey(collection, id)
	if _, err := s.client.Get(key); err != nil {
		return s.wrap("delete", collection, id, err)
	}
	if err := s.client.Delete(key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	s.poller.Notify()
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (models.Prospect, error) {
	if err := store.CheckCollection(collection); err != nil {
		return models.Prospect{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Prospect{}, err
	}
	body, err := s.client.Get(docKey(collection, id))
	if err != nil {
		return models.Prospect{}, s.wrap("get", collection, id, err)
	}
	p, err := models.FromDocument(id, body)
	if err != nil {
		return models.Prospect{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return p, nil
}

// All lists a collection once, in key order.
func (s *Store) All(ctx context.Context, collection string) ([]models.Prospect, error) {
	return s.list(ctx, collection)
}

func (s *Store) wrap(op, collection, id string, err error) error {
	if errors.Is(err, ErrKeyNotFound) {
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, store.ErrNotFound)
	}
	return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
}

func (s *Store) list(ctx context.Context, collection string) ([]models.Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := collection + "/"
	keys, err := s.client.KeysWithPrefix([]byte(prefix))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	out := make([]models.Prospect, 0, len(keys))
	for _, k := range keys {
		id := string(k[len(prefix):])
		body, err := s.client.Get(k)
		if errors.Is(err, ErrKeyNotFound) {
			// Removed by a concurrent delete or sync since Keys ran.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		p, err := models.FromDocument(id, body)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "collection", collection, "id", id, "err", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) refresh(context.Context) error {
	return s.client.Sync()
}
