// ABOUTME: Live prospect list kept in sync with the store by full snapshot replacement
// ABOUTME: Owns the subscription lifetime and exposes Loading, Live, and Failed sync states
package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

var (
	ErrNotFound           = errors.New("prospect not found")
	ErrNoActiveWorkflow   = errors.New("no active workflow")
	ErrCommitInProgress   = errors.New("commit in progress")
	ErrSubscriptionFailed = errors.New("subscription failed")
	ErrUnknownField       = errors.New("unknown field")
)

// Phase is the sync state of a List.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLive
	PhaseFailed
)

func (s Phase) String() string {
	switch s {
	case PhaseLoading:
		return "loading"
	case PhaseLive:
		return "live"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Option configures a List or a Session.
type Option func(*options)

type options struct {
	logger     *log.Logger
	metrics    *Metrics
	collection string
	onChange   []func()
	catalog    *Catalog
	deriver    Deriver
}

func buildOptions(opts []Option) options {
	o := options{collection: store.Collection}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.catalog == nil {
		o.catalog = NewCatalog()
	}
	return o
}

// WithLogger sets the logger used for sync and workflow events.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records activity on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCollection subscribes to a collection other than store.Collection.
func WithCollection(name string) Option {
	return func(o *options) { o.collection = name }
}

// WithChangeListener calls fn after every applied snapshot and on failure.
// fn runs on the delivering goroutine and must not write to the store.
func WithChangeListener(fn func()) Option {
	return func(o *options) { o.onChange = append(o.onChange, fn) }
}

// WithCatalog gives a Session an existing status catalog.
func WithCatalog(c *Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithDeriver sets the collation used by a Session.
func WithDeriver(d Deriver) Option {
	return func(o *options) { o.deriver = d }
}

// List mirrors one collection. Its records are only ever replaced wholesale
// by store snapshots; workflows never patch them locally.
type List struct {
	store      store.Store
	collection string
	logger     *log.Logger
	metrics    *Metrics

	mu        sync.RWMutex
	records   []models.Prospect
	index     map[string]int
	state     Phase
	err       error
	sub       store.Subscription
	closed    bool
	listeners []func()
	ready     chan struct{}
	readyOnce sync.Once
}

// Open subscribes to the collection and returns a List in the Loading phase,
// or Live if the store delivered the first snapshot synchronously.
func Open(ctx context.Context, st store.Store, opts ...Option) (*List, error) {
	o := buildOptions(opts)
	l := &List{
		store:      st,
		collection: o.collection,
		logger:     o.logger.WithPrefix("list"),
		metrics:    o.metrics,
		index:      map[string]int{},
		listeners:  o.onChange,
		ready:      make(chan struct{}),
	}

	sub, err := st.Subscribe(ctx, l.collection, l.applySnapshot, l.fail)
	if err != nil {
		l.metrics.observeSubscriptionFailure()
		l.logger.Error("subscribe failed", "collection", l.collection, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSubscriptionFailed, err)
	}

	if err := ctx.Err(); err != nil {
		_ = sub.Close()
		return nil, err
	}

	l.mu.Lock()
	if l.state == PhaseFailed || l.closed {
		l.mu.Unlock()
		_ = sub.Close()
		return l, nil
	}
	l.sub = sub
	l.mu.Unlock()

	l.logger.Debug("subscribed", "collection", l.collection)
	return l, nil
}

// Run opens a List, passes it to fn, and closes it when fn returns.
func Run(ctx context.Context, st store.Store, fn func(*List) error, opts ...Option) error {
	l, err := Open(ctx, st, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()
	return fn(l)
}

// Close releases the subscription. No snapshots are applied afterwards.
func (l *List) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()

	if sub == nil {
		return nil
	}
	l.logger.Debug("unsubscribed", "collection", l.collection)
	return sub.Close()
}

// OnChange registers fn to run after every applied snapshot and on failure.
func (l *List) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Store returns the backing store.
func (l *List) Store() store.Store { return l.store }

// Collection returns the subscribed collection name.
func (l *List) Collection() string { return l.collection }

// Phase returns the sync state.
func (l *List) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Err returns the subscription failure, wrapped in ErrSubscriptionFailed.
func (l *List) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Records returns a copy of the latest snapshot in store order.
func (l *List) Records() []models.Prospect {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Prospect, len(l.records))
	for i, r := range l.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records in the latest snapshot.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Lookup finds a record of the latest snapshot by id.
func (l *List) Lookup(id string) (models.Prospect, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return models.Prospect{}, false
	}
	return l.records[i].Clone(), true
}

// Wait blocks until the first snapshot arrives or the subscription fails.
func (l *List) Wait(ctx context.Context) error {
	select {
	case <-l.ready:
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *List) applySnapshot(records []models.Prospect) {
	l.mu.Lock()
	if l.closed || l.state == PhaseFailed {
		l.mu.Unlock()
		return
	}
	l.records = make([]models.Prospect, len(records))
	l.index = make(map[string]int, len(records))
	for i, r := range records {
		l.records[i] = r.Clone()
		l.index[r.ID] = i
	}
	l.state = PhaseLive
	listeners := append([]func(){}, l.listeners...)
	l.mu.Unlock()

	l.readyOnce.Do(func() { close(l.ready) })
	l.metrics.observeSnapshot(len(records))
	l.logger.Debug("snapshot applied", "records", len(records))
	for _, fn := range listeners {
		fn()
	}
}

func (l *List) fail(err error) {
	l.mu.Lock()
	if l.closed || l.state == PhaseFailed {
		l.mu.Unlock()
		return
	}
	l.state = PhaseFailed
	l.err = fmt.Errorf("%w: %w", ErrSubscriptionFailed, err)
	sub := l.sub
	l.sub = nil
	listeners := append([]func(){}, l.listeners...)
	l.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
	l.readyOnce.Do(func() { close(l.ready) })
	l.metrics.observeSubscriptionFailure()
	l.logger.Error("subscription failed", "collection", l.collection, "err", err)
	for _, fn := range listeners {
		fn()
	}
}
