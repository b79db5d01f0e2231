// ABOUTME: Tests for the SQLite prospect store
// ABOUTME: Covers CRUD, creation ordering, external writers, and polled subscriptions
package db

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, StoreOptions{PollInterval: 20 * time.Millisecond, Logger: log.New(io.Discard)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreCRUD(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "p.db"))
	ctx := context.Background()

	id, err := s.Create(ctx, store.Collection, models.Fields{"company": "Acme", "status": "Lead"})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, store.Collection, id, models.Fields{"status": "Negotiation"}))
	p, err := s.Get(ctx, store.Collection, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Company)
	assert.Equal(t, "Negotiation", p.Status)

	require.NoError(t, s.Delete(ctx, store.Collection, id))
	_, err = s.Get(ctx, store.Collection, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, store.Collection, id), store.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, store.Collection, id, models.Fields{"a": 1}), store.ErrNotFound)
}

func TestStoreListsInCreationOrder(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "p.db"))
	ctx := context.Background()

	var want []string
	for _, name := range []string{"Zeta", "Alfa", "Mid"} {
		id, err := s.Create(ctx, store.Collection, models.Fields{"company": name})
		require.NoError(t, err)
		want = append(want, id)
	}
	require.NoError(t, s.Update(ctx, store.Collection, want[0], models.Fields{"status": "Lead"}))

	all, err := s.All(ctx, store.Collection)
	require.NoError(t, err)
	got := make([]string, len(all))
	for i, p := range all {
		got[i] = p.ID
	}
	assert.Equal(t, want, got)
}

func TestStoreImportKeepsID(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "p.db"))
	ctx := context.Background()

	in := models.Prospect{ID: "fixed", Company: "Acme", Extra: map[string]any{"owner": "anna"}}
	require.NoError(t, s.Import(ctx, store.Collection, in))
	require.NoError(t, s.Import(ctx, store.Collection, in))

	all, err := s.All(ctx, store.Collection)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fixed", all[0].ID)
	assert.Equal(t, "anna", all[0].Extra["owner"])
}

type snapshots struct {
	mu   sync.Mutex
	last []models.Prospect
}

func (s *snapshots) set(records []models.Prospect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = records
}

func (s *snapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return -1
	}
	return len(s.last)
}

func TestStoreSeesOtherConnectionsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	reader := openTestStore(t, path)
	writer := openTestStore(t, path)
	ctx := context.Background()

	var snap snapshots
	sub, err := reader.Subscribe(ctx, store.Collection, snap.set, func(err error) { t.Errorf("unexpected error: %v", err) })
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()
	require.Eventually(t, func() bool { return snap.count() == 0 }, time.Second, 5*time.Millisecond)

	_, err = writer.Create(ctx, store.Collection, models.Fields{"company": "From elsewhere"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return snap.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionOverSQLiteIsEventuallyConsistent(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "p.db"))
	ctx := context.Background()
	id, err := s.Create(ctx, store.Collection, models.Fields{"company": "Acme", "status": "Lead"})
	require.NoError(t, err)

	sess, err := listview.OpenSession(ctx, s, listview.WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()
	require.NoError(t, sess.Wait(ctx))
	require.Len(t, sess.Rows(), 1)

	require.NoError(t, sess.RequestArchive(id))
	require.NoError(t, sess.ConfirmArchive(ctx))
	require.Eventually(t, func() bool { return len(sess.Rows()) == 0 }, time.Second, 5*time.Millisecond)

	p, ok := sess.List().Lookup(id)
	require.True(t, ok)
	assert.True(t, p.Archived)
	assert.Equal(t, "Lead", p.Status)
}
