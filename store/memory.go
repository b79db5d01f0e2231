// ABOUTME: In-process Store that pushes snapshots synchronously after every write
// ABOUTME: Records calls and supports failure injection and held snapshots for tests
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harperreed/prospekt/models"
)

// Op names a store primitive.
type Op string

const (
	OpSubscribe Op = "subscribe"
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpGet       Op = "get"
)

// Call is one recorded write or read against a MemoryStore.
type Call struct {
	Op         Op
	Collection string
	ID         string
	Fields     models.Fields
}

type memCollection struct {
	order   []string
	docs    map[string][]byte
	pending bool
}

type memSubscriber struct {
	collection string
	onSnapshot SnapshotFunc
	onError    ErrorFunc
	closed     bool
}

// MemoryStore is a Store kept entirely in memory.
type MemoryStore struct {
	mu          sync.Mutex
	deliverMu   sync.Mutex
	collections map[string]*memCollection
	subs        map[int]*memSubscriber
	nextSub     int
	failures    map[Op][]error
	calls       []Call
	hold        bool
	newID       func() string
}

// NewMemoryStore returns an empty MemoryStore that assigns UUID ids.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		subs:        make(map[int]*memSubscriber),
		failures:    make(map[Op][]error),
		newID:       uuid.NewString,
	}
}

// SetIDFunc replaces the id generator used by Create.
func (m *MemoryStore) SetIDFunc(fn func() string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newID = fn
}

// Put writes a document with a caller-chosen id, as another client would.
func (m *MemoryStore) Put(collection, id string, fields models.Fields) error {
	body, err := NewDocument(fields)
	if err != nil {
		return err
	}
	m.mu.Lock()
	c := m.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = body
	m.mu.Unlock()
	m.publish(collection)
	return nil
}

// FailNext makes the next call of op return err.
func (m *MemoryStore) FailNext(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// BreakSubscriptions delivers err to every open subscriber of collection.
func (m *MemoryStore) BreakSubscriptions(collection string, err error) {
	m.mu.Lock()
	var targets []*memSubscriber
	for _, s := range m.subs {
		if s.collection == collection && !s.closed {
			targets = append(targets, s)
		}
	}
	m.mu.Unlock()

	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	for _, s := range targets {
		if s.onError != nil {
			s.onError(err)
		}
	}
}

// HoldSnapshots queues snapshots instead of delivering them until Flush.
func (m *MemoryStore) HoldSnapshots() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = true
}

// Flush delivers held snapshots and resumes synchronous delivery.
func (m *MemoryStore) Flush() {
	m.mu.Lock()
	m.hold = false
	var names []string
	for name, c := range m.collections {
		if c.pending {
			c.pending = false
			names = append(names, name)
		}
	}
	m.mu.Unlock()
	for _, name := range names {
		m.publish(name)
	}
}

// Calls returns the recorded calls, optionally restricted to one op.
func (m *MemoryStore) Calls(op Op) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Subscribers returns the number of open subscriptions.
func (m *MemoryStore) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs {
		if !s.closed {
			n++
		}
	}
	return n
}

// Subscribe registers a subscriber and delivers the initial snapshot before returning.
func (m *MemoryStore) Subscribe(_ context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if err := CheckCollection(collection); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: OpSubscribe, Collection: collection})
	if err := m.takeFailure(OpSubscribe); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	id := m.nextSub
	m.nextSub++
	sub := &memSubscriber{collection: collection, onSnapshot: onSnapshot, onError: onError}
	m.subs[id] = sub
	snapshot, err := m.snapshot(collection)
	if err != nil {
		delete(m.subs, id)
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	m.deliverMu.Lock()
	onSnapshot(snapshot)
	m.deliverMu.Unlock()

	return &memSubscription{store: m, id: id}, nil
}

// Create stores a new document under a generated id.
func (m *MemoryStore) Create(_ context.Context, collection string, fields models.Fields) (string, error) {
	if err := CheckCollection(collection); err != nil {
		return "", err
	}
	body, err := NewDocument(fields)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: OpCreate, Collection: collection, Fields: copyFields(fields)})
	if err := m.takeFailure(OpCreate); err != nil {
		m.mu.Unlock()
		return "", err
	}
	id := m.newID()
	c := m.collection(collection)
	c.order = append(c.order, id)
	c.docs[id] = body
	m.mu.Unlock()

	m.publish(collection)
	return id, nil
}

// Update merges patch into an existing document.
func (m *MemoryStore) Update(_ context.Context, collection, id string, patch models.Fields) error {
	if err := CheckCollection(collection); err != nil {
		return err
	}
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: OpUpdate, Collection: collection, ID: id, Fields: copyFields(patch)})
	if err := m.takeFailure(OpUpdate); err != nil {
		m.mu.Unlock()
		return err
	}
	c := m.collection(collection)
	body, ok := c.docs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	updated, err := ApplyPatch(body, patch)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	c.docs[id] = updated
	m.mu.Unlock()

	m.publish(collection)
	return nil
}

// Delete removes a document permanently.
func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := CheckCollection(collection); err != nil {
		return err
	}
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: OpDelete, Collection: collection, ID: id})
	if err := m.takeFailure(OpDelete); err != nil {
		m.mu.Unlock()
		return err
	}
	c := m.collection(collection)
	if _, ok := c.docs[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.publish(collection)
	return nil
}

// Get reads one document.
func (m *MemoryStore) Get(_ context.Context, collection, id string) (models.Prospect, error) {
	if err := CheckCollection(collection); err != nil {
		return models.Prospect{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: OpGet, Collection: collection, ID: id})
	if err := m.takeFailure(OpGet); err != nil {
		return models.Prospect{}, err
	}
	body, ok := m.collection(collection).docs[id]
	if !ok {
		return models.Prospect{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	return models.FromDocument(id, body)
}

func (m *MemoryStore) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string][]byte)}
		m.collections[name] = c
	}
	return c
}

// takeFailure must be called with mu held.
func (m *MemoryStore) takeFailure(op Op) error {
	queue := m.failures[op]
	if len(queue) == 0 {
		return nil
	}
	m.failures[op] = queue[1:]
	return queue[0]
}

// snapshot must be called with mu held.
func (m *MemoryStore) snapshot(collection string) ([]models.Prospect, error) {
	c := m.collection(collection)
	out := make([]models.Prospect, 0, len(c.order))
	for _, id := range c.order {
		p, err := models.FromDocument(id, c.docs[id])
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MemoryStore) publish(collection string) {
	m.mu.Lock()
	if m.hold {
		m.collection(collection).pending = true
		m.mu.Unlock()
		return
	}
	snapshot, err := m.snapshot(collection)
	var targets []*memSubscriber
	for _, s := range m.subs {
		if s.collection == collection && !s.closed {
			targets = append(targets, s)
		}
	}
	m.mu.Unlock()

	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	for _, s := range targets {
		if err != nil {
			if s.onError != nil {
				s.onError(err)
			}
			continue
		}
		s.onSnapshot(cloneRecords(snapshot))
	}
}

type memSubscription struct {
	store *MemoryStore
	id    int
}

func (s *memSubscription) Close() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if sub, ok := s.store.subs[s.id]; ok {
		sub.closed = true
		delete(s.store.subs, s.id)
	}
	return nil
}

func copyFields(f models.Fields) models.Fields {
	if f == nil {
		return nil
	}
	out := make(models.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func cloneRecords(in []models.Prospect) []models.Prospect {
	out := make([]models.Prospect, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
