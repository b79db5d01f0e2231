// ABOUTME: Session ties a List, a status Catalog, and view state into one rendered view
// ABOUTME: Shells read rows and workflow state from here and trigger workflows through it
package listview

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

// Session is one user's view of the prospect list.
type Session struct {
	list    *List
	catalog *Catalog
	deriver Deriver
	logger  *log.Logger
	metrics *Metrics
	owned   bool

	mu         sync.Mutex
	sort       SortSpec
	search     string
	filter     Filter
	archive    confirmFlow
	remove     confirmFlow
	status     statusFlow
	create     createFlow
	detailID   string
	detailOpen bool
	notice     string
}

// NewSession builds a Session over an open List. Closing the Session does not
// close list.
func NewSession(list *List, opts ...Option) *Session {
	o := buildOptions(opts)
	if o.metrics == nil {
		o.metrics = list.metrics
	}
	return &Session{
		list:    list,
		catalog: o.catalog,
		deriver: o.deriver,
		logger:  o.logger.WithPrefix("session"),
		metrics: o.metrics,
		archive: confirmFlow{op: "archive"},
		remove:  confirmFlow{op: "delete"},
	}
}

// OpenSession opens a List on st and wraps it in a Session that owns it.
func OpenSession(ctx context.Context, st store.Store, opts ...Option) (*Session, error) {
	list, err := Open(ctx, st, opts...)
	if err != nil {
		return nil, err
	}
	s := NewSession(list, opts...)
	s.owned = true
	return s, nil
}

// RunSession opens a Session, passes it to fn, and closes it when fn returns.
func RunSession(ctx context.Context, st store.Store, fn func(*Session) error, opts ...Option) error {
	s, err := OpenSession(ctx, st, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}

// Close releases the List if the Session opened it.
func (s *Session) Close() error {
	if !s.owned {
		return nil
	}
	return s.list.Close()
}

// List returns the underlying List.
func (s *Session) List() *List { return s.list }

// Catalog returns the status catalog.
func (s *Session) Catalog() *Catalog { return s.catalog }

// Phase returns the sync phase of the list.
func (s *Session) Phase() Phase { return s.list.Phase() }

// Err returns the fatal subscription error, if any.
func (s *Session) Err() error { return s.list.Err() }

// Wait blocks until the first snapshot arrives or the subscription fails.
func (s *Session) Wait(ctx context.Context) error { return s.list.Wait(ctx) }

// Rows derives the visible rows from the latest snapshot.
func (s *Session) Rows() []models.Prospect {
	s.mu.Lock()
	sort, search, filter := s.sort, s.search, s.filter
	s.mu.Unlock()
	return s.deriver.Derive(s.list.Records(), sort, search, filter)
}

// Query derives rows for the given parameters without touching the view state.
func (s *Session) Query(sort SortSpec, search string, filter Filter) []models.Prospect {
	return s.deriver.Derive(s.list.Records(), sort, search, filter)
}

// Sort returns the current sort.
func (s *Session) Sort() SortSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// ToggleSort sorts by key, flipping direction when key is already ascending.
func (s *Session) ToggleSort(key string) SortSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(key)
	return s.sort
}

// SetSort replaces the sort.
func (s *Session) SetSort(spec SortSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = spec
}

// Search returns the free-text query.
func (s *Session) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// SetSearch replaces the free-text query.
func (s *Session) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = q
}

// Filter returns the field filters.
func (s *Session) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetFilter replaces all field filters.
func (s *Session) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// SetFilterField sets one field filter.
func (s *Session) SetFilterField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.filter.With(field, value)
	if err != nil {
		return err
	}
	s.filter = f
	return nil
}

// AddStatusLabel extends the catalog. It never writes to the store.
func (s *Session) AddStatusLabel(label string) bool {
	added := s.catalog.Add(label)
	if added {
		s.logger.Debug("status label added", "label", label)
	}
	return added
}

// Notice returns the last mutation error shown to the user.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// ClearNotice dismisses the notice.
func (s *Session) ClearNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = ""
}
