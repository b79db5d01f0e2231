// ABOUTME: Record store adapter contract used by the prospect list core
// ABOUTME: Declares Store and Subscription plus shared document encode and patch helpers
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harperreed/prospekt/models"
)

// Collection is the name of the prospects collection.
const Collection = "prospects"

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidCollection = errors.New("invalid collection")
	ErrClosed            = errors.New("store closed")
)

// SnapshotFunc receives the full record set of a collection in store order.
type SnapshotFunc func(records []models.Prospect)

// ErrorFunc receives a subscription failure. No snapshots follow it.
type ErrorFunc func(err error)

// Subscription is a live feed of snapshots. Close releases it.
type Subscription interface {
	Close() error
}

// Store is a remote document store with push snapshots.
//
// Every subscriber receives an initial snapshot and then a full snapshot after
// each change made by any client. Snapshots may be delivered on any goroutine,
// including synchronously from inside Subscribe or a write call.
type Store interface {
	Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
	Create(ctx context.Context, collection string, fields models.Fields) (string, error)
	Update(ctx context.Context, collection, id string, patch models.Fields) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (models.Prospect, error)
}

// NewDocument encodes a create payload as a document body.
func NewDocument(fields models.Fields) ([]byte, error) {
	doc := make(map[string]any, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return body, nil
}

// ApplyPatch shallow-merges patch into an encoded document body.
func ApplyPatch(body []byte, patch models.Fields) ([]byte, error) {
	doc := make(map[string]any)
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
	}
	for k, v := range patch {
		doc[k] = v
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

// CheckCollection rejects empty collection names.
func CheckCollection(collection string) error {
	if collection == "" {
		return ErrInvalidCollection
	}
	return nil
}
