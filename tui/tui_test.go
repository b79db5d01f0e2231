// ABOUTME: Tests for the TUI model driven by key messages
// ABOUTME: Runs mutation commands synchronously against the in-memory store
package tui

import (
	"context"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

func newTestModel(t *testing.T, st store.Store) (Model, *listview.Session) {
	t.Helper()
	sess, err := listview.OpenSession(context.Background(), st, listview.WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return NewModel(context.Background(), sess), sess
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ms := store.NewMemoryStore()
	require.NoError(t, ms.Put(store.Collection, "1", models.Fields{"company": "Beta", "contactPerson": "Bo", "status": "Lead", "phone": "555-0101"}))
	require.NoError(t, ms.Put(store.Collection, "2", models.Fields{"company": "Acme", "contactPerson": "Anna", "status": "Negotiation"}))
	return ms
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press feeds keys one by one and returns the command of the last key.
func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

// finish runs a mutation command and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	_, ok := msg.(mutationMsg)
	require.True(t, ok, "expected mutationMsg, got %T", msg)
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestListRendersRowsInStoreOrder(t *testing.T) {
	m, _ := newTestModel(t, seededStore(t))

	require.Len(t, m.rows, 2)
	assert.Equal(t, "Beta", m.rows[0].Company)
	view := m.View()
	assert.Contains(t, view, "PROSPEKT")
	assert.Contains(t, view, "Acme")
	assert.Contains(t, view, "2 of 2 prospects")
}

func TestSortKeysToggleDirection(t *testing.T) {
	m, sess := newTestModel(t, seededStore(t))

	m, _ = press(m, "1")
	assert.Equal(t, listview.SortSpec{Key: models.FieldCompany, Direction: listview.Ascending}, sess.Sort())
	assert.Equal(t, "Acme", m.rows[0].Company)
	assert.Contains(t, m.View(), "Company ▲")

	m, _ = press(m, "1")
	assert.Equal(t, listview.Descending, sess.Sort().Direction)
	assert.Equal(t, "Beta", m.rows[0].Company)
	assert.Contains(t, m.View(), "Company ▼")

	m, _ = press(m, "6")
	assert.Equal(t, models.FieldStatus, sess.Sort().Key)
	assert.Equal(t, listview.Ascending, sess.Sort().Direction)
}

func TestSearchNarrowsRows(t *testing.T) {
	m, sess := newTestModel(t, seededStore(t))

	m, _ = press(m, "/", "a", "c", "m")
	assert.Equal(t, ViewSearch, m.viewMode)
	assert.Equal(t, "acm", sess.Search())
	require.Len(t, m.rows, 1)
	assert.Equal(t, "Acme", m.rows[0].Company)

	m, _ = press(m, "enter")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, "acm", sess.Search())

	m, _ = press(m, "/", "esc")
	assert.Equal(t, "", sess.Search())
	assert.Len(t, m.rows, 2)
}

func TestFilterForm(t *testing.T) {
	m, sess := newTestModel(t, seededStore(t))

	m, _ = press(m, "f", "tab", "tab", "l", "e", "a")
	assert.Equal(t, ViewFilter, m.viewMode)
	assert.Equal(t, "lea", sess.Filter().Status)
	require.Len(t, m.rows, 1)
	assert.Equal(t, "Beta", m.rows[0].Company)

	m, _ = press(m, "esc", "F")
	assert.True(t, sess.Filter().IsZero())
	assert.Len(t, m.rows, 2)
}

func TestArchiveConfirmAndCancel(t *testing.T) {
	ms := seededStore(t)
	m, sess := newTestModel(t, ms)

	m, _ = press(m, "a", "n")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Empty(t, ms.Calls(store.OpUpdate))

	m, _ = press(m, "a")
	assert.Equal(t, ViewConfirmArchive, m.viewMode)
	assert.Contains(t, m.View(), "ARCHIVE CONFIRMATION")

	m, cmd := press(m, "y")
	m = finish(t, m, cmd)
	assert.Equal(t, ViewList, m.viewMode)
	require.Len(t, ms.Calls(store.OpUpdate), 1)
	require.Len(t, m.rows, 1)
	assert.Equal(t, "Acme", m.rows[0].Company)
	assert.Equal(t, listview.Idle, sess.ArchiveState().State)
}

func TestDeleteFailureKeepsDialogOpen(t *testing.T) {
	ms := seededStore(t)
	m, sess := newTestModel(t, ms)
	ms.FailNext(store.OpDelete, errors.New("permission denied"))

	m, cmd := press(m, "d", "y")
	m = finish(t, m, cmd)
	assert.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Equal(t, listview.Confirming, sess.DeleteState().State)
	assert.Contains(t, m.View(), "permission denied")
	assert.Len(t, m.rows, 2)

	m, cmd = press(m, "y")
	m = finish(t, m, cmd)
	assert.Equal(t, ViewList, m.viewMode)
	assert.Len(t, m.rows, 1)
}

func TestCreateForm(t *testing.T) {
	ms := seededStore(t)
	m, sess := newTestModel(t, ms)

	m, _ = press(m, "n")
	assert.Equal(t, ViewCreate, m.viewMode)
	assert.Equal(t, listview.Editing, sess.CreateState().State)

	m, _ = press(m, "G", "l", "o", "b", "e", "x", "tab", "G", "u", "s")
	m, cmd := press(m, "enter")
	m = finish(t, m, cmd)

	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, listview.Idle, sess.CreateState().State)
	require.Len(t, ms.Calls(store.OpCreate), 1)
	require.Len(t, m.rows, 3)
	assert.Equal(t, "Globex", m.rows[2].Company)
	assert.Equal(t, "Gus", m.rows[2].ContactPerson)
}

func TestCreateCancel(t *testing.T) {
	ms := seededStore(t)
	m, sess := newTestModel(t, ms)

	m, _ = press(m, "n", "X", "esc")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, listview.Idle, sess.CreateState().State)
	assert.Empty(t, ms.Calls(store.OpCreate))
}

func TestStatusSelector(t *testing.T) {
	ms := seededStore(t)
	m, sess := newTestModel(t, ms)

	m, _ = press(m, "s")
	assert.Equal(t, ViewStatus, m.viewMode)
	state := sess.StatusState()
	assert.Equal(t, listview.Targeted, state.State)
	assert.Equal(t, statusColumn, state.Anchor.Col)
	assert.Equal(t, 0, m.statusCursor) // "Lead"

	m, cmd := press(m, "down", "enter")
	m = finish(t, m, cmd)
	assert.Equal(t, ViewList, m.viewMode)

	p, ok := sess.List().Lookup("1")
	require.True(t, ok)
	assert.Equal(t, listview.DefaultStatuses[1], p.Status)
}

func TestStatusSelectorAddsLabelWithoutApplying(t *testing.T) {
	ms := seededStore(t)
	m, sess := newTestModel(t, ms)

	m, _ = press(m, "s", "+", "P", "a", "u", "s", "e", "d", "enter")
	assert.Equal(t, ViewStatus, m.viewMode)
	assert.True(t, sess.Catalog().Contains("Paused"))
	assert.Equal(t, listview.Targeted, sess.StatusState().State)
	assert.Empty(t, ms.Calls(store.OpUpdate))
	assert.Equal(t, len(listview.DefaultStatuses), m.statusCursor)

	m, _ = press(m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Equal(t, listview.Idle, sess.StatusState().State)
}

func TestDetailTracksRemoteDeletes(t *testing.T) {
	ms := seededStore(t)
	m, _ := newTestModel(t, ms)

	m, _ = press(m, "enter")
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Contains(t, m.View(), "555-0101")

	require.NoError(t, ms.Delete(context.Background(), store.Collection, "1"))
	next, _ := m.Update(changeMsg{})
	m = next.(Model)
	assert.Contains(t, m.View(), "no longer exists")

	m, _ = press(m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
	assert.Len(t, m.rows, 1)
}

func TestFatalScreen(t *testing.T) {
	ms := seededStore(t)
	m, sess := newTestModel(t, ms)

	ms.BreakSubscriptions(store.Collection, errors.New("permission revoked"))
	next, _ := m.Update(changeMsg{})
	m = next.(Model)

	assert.Equal(t, listview.PhaseFailed, sess.Phase())
	view := m.View()
	assert.Contains(t, view, "no longer in sync")
	assert.Contains(t, view, "permission revoked")

	m, cmd := press(m, "a")
	assert.Nil(t, cmd)
	assert.Equal(t, ViewList, m.viewMode)
	assert.Empty(t, ms.Calls(store.OpUpdate))
}

type silentStore struct {
	*store.MemoryStore
}

type noopSubscription struct{}

func (noopSubscription) Close() error { return nil }

func (silentStore) Subscribe(context.Context, string, store.SnapshotFunc, store.ErrorFunc) (store.Subscription, error) {
	return noopSubscription{}, nil
}

func TestLoadingScreen(t *testing.T) {
	m, _ := newTestModel(t, silentStore{store.NewMemoryStore()})
	assert.Contains(t, m.View(), "Loading prospects")
}

func TestChangeChannelSignalsOnSnapshot(t *testing.T) {
	ms := seededStore(t)
	m, _ := newTestModel(t, ms)

	require.NoError(t, ms.Put(store.Collection, "3", models.Fields{"company": "Initech"}))
	msg := m.waitForChange()()
	assert.IsType(t, changeMsg{}, msg)

	next, cmd := m.Update(msg)
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Len(t, m.rows, 3)
}

func TestDashboardView(t *testing.T) {
	m, _ := newTestModel(t, seededStore(t))
	m, _ = press(m, "v")
	assert.Equal(t, ViewDashboard, m.viewMode)
	assert.Contains(t, m.View(), "PROSPEKT DASHBOARD")
	m, _ = press(m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
}
