// ABOUTME: Polling snapshot feed for stores without native push
// ABOUTME: Re-lists a collection on a ticker or local notify and pushes changed snapshots
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/harperreed/prospekt/models"
)

// DefaultPollInterval is used when PollerOptions.Interval is zero.
const DefaultPollInterval = 5 * time.Second

// ListFunc returns the current records of a collection in store order.
type ListFunc func(ctx context.Context, collection string) ([]models.Prospect, error)

// RefreshFunc pulls remote changes before a scheduled poll. Its errors are
// logged and retried on the next tick.
type RefreshFunc func(ctx context.Context) error

// PollerOptions configures a Poller.
type PollerOptions struct {
	Interval time.Duration
	Refresh  RefreshFunc
	Logger   *log.Logger
}

// Poller turns a list function into push subscriptions.
type Poller struct {
	list     ListFunc
	refresh  RefreshFunc
	interval time.Duration
	logger   *log.Logger

	mu   sync.Mutex
	subs map[*pollSubscription]struct{}
}

// NewPoller creates a Poller around list.
func NewPoller(list ListFunc, opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		list:     list,
		refresh:  opts.Refresh,
		interval: interval,
		logger:   logger.WithPrefix("poller"),
		subs:     make(map[*pollSubscription]struct{}),
	}
}

// Subscribe lists the collection once and fails if that listing fails.
// The initial snapshot and all later ones are delivered from a dedicated goroutine.
func (p *Poller) Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if err := CheckCollection(collection); err != nil {
		return nil, err
	}
	initial, err := p.list(ctx, collection)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &pollSubscription{
		poller:     p,
		collection: collection,
		onSnapshot: onSnapshot,
		onError:    onError,
		ctx:        subCtx,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	p.mu.Lock()
	p.subs[s] = struct{}{}
	p.mu.Unlock()

	go s.run(initial)
	return s, nil
}

// Notify wakes every subscription for an immediate re-list.
func (p *Poller) Notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for s := range p.subs {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Active returns the number of open subscriptions.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Poller) remove(s *pollSubscription) {
	p.mu.Lock()
	delete(p.subs, s)
	p.mu.Unlock()
}

type pollSubscription struct {
	poller     *Poller
	collection string
	onSnapshot SnapshotFunc
	onError    ErrorFunc
	ctx        context.Context
	cancel     context.CancelFunc
	wake       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	last       uint64
}

// Close stops the feed. It does not wait for an in-progress delivery so it is
// safe to call from inside a snapshot or error callback.
func (s *pollSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.poller.remove(s)
	})
	return nil
}

func (s *pollSubscription) run(initial []models.Prospect) {
	defer close(s.done)
	defer s.Close()

	s.deliver(initial, true)

	ticker := time.NewTicker(s.poller.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.poller.refresh != nil {
				if err := s.poller.refresh(s.ctx); err != nil && s.ctx.Err() == nil {
					s.poller.logger.Warn("refresh failed", "collection", s.collection, "err", err)
				}
			}
			if !s.poll() {
				return
			}
		case <-s.wake:
			if !s.poll() {
				return
			}
		}
	}
}

func (s *pollSubscription) poll() bool {
	records, err := s.poller.list(s.ctx, s.collection)
	if s.ctx.Err() != nil {
		return false
	}
	if err != nil {
		s.poller.logger.Error("subscription failed", "collection", s.collection, "err", err)
		if s.onError != nil {
			s.onError(err)
		}
		return false
	}
	s.deliver(records, false)
	return true
}

func (s *pollSubscription) deliver(records []models.Prospect, force bool) {
	sum := Fingerprint(records)
	if !force && sum == s.last {
		return
	}
	s.last = sum
	if s.ctx.Err() != nil {
		return
	}
	s.onSnapshot(records)
}

// Fingerprint hashes a snapshot so unchanged re-lists can be skipped.
func Fingerprint(records []models.Prospect) uint64 {
	d := xxhash.New()
	for _, r := range records {
		_, _ = d.WriteString(r.ID)
		_, _ = d.Write([]byte{0})
		body, err := json.Marshal(r.ToMap())
		if err != nil {
			continue
		}
		_, _ = d.Write(body)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
