// ABOUTME: Tests for the prospect, viz, and sync CLI commands
// ABOUTME: Commands run against a session over the in-memory store and print into buffers
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/prospekt/config"
	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func setupSession(t *testing.T) (*listview.Session, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	require.NoError(t, ms.Put(store.Collection, "a", models.Fields{"company": "Acme", "contactPerson": "Anna", "status": "Lead", "firstContactDate": "2024-01-05"}))
	require.NoError(t, ms.Put(store.Collection, "b", models.Fields{"company": "Beta", "contactPerson": "Bo", "status": "Negotiation"}))
	require.NoError(t, ms.Put(store.Collection, "c", models.Fields{"company": "Gamma", "status": "Lead", "archived": true}))

	cfg := config.Default()
	opts, err := SessionOptions(cfg, quietLogger(), nil)
	require.NoError(t, err)
	sess, err := OpenSession(context.Background(), ms, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess, ms
}

func TestListCommandTable(t *testing.T) {
	sess, _ := setupSession(t)
	var out bytes.Buffer

	require.NoError(t, ListCommand(context.Background(), sess, &out, nil))
	text := out.String()
	assert.Contains(t, text, "COMPANY")
	assert.Contains(t, text, "Acme")
	assert.Contains(t, text, "Beta")
	assert.NotContains(t, text, "Gamma")
	assert.Contains(t, text, "Total: 2 prospect(s)")
	assert.Less(t, strings.Index(text, "Acme"), strings.Index(text, "Beta"))
}

func TestListCommandSortFilterJSON(t *testing.T) {
	sess, _ := setupSession(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, ListCommand(ctx, sess, &out, []string{"--sort", "company", "--desc", "--json"}))
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0]["id"])
	assert.Equal(t, "Acme", docs[1]["company"])

	out.Reset()
	require.NoError(t, ListCommand(ctx, sess, &out, []string{"--status", "nego"}))
	assert.Contains(t, out.String(), "Beta")
	assert.NotContains(t, out.String(), "Acme")

	out.Reset()
	require.NoError(t, ListCommand(ctx, sess, &out, []string{"--search", "nobody"}))
	assert.Equal(t, "No prospects found\n", out.String())

	// The command never touches the session's own view state.
	assert.Equal(t, listview.SortSpec{}, sess.Sort())
}

func TestAddCommand(t *testing.T) {
	sess, ms := setupSession(t)
	ms.SetIDFunc(func() string { return "new1" })
	var out bytes.Buffer

	err := AddCommand(context.Background(), sess, &out, []string{"--company", "Delta", "--contact", "Dee", "--status", "Lead"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ Prospect created: Delta (ID: new1)")

	calls := ms.Calls(store.OpCreate)
	require.Len(t, calls, 1)
	assert.Equal(t, "Delta", calls[0].Fields[models.FieldCompany])
	assert.Equal(t, "", calls[0].Fields[models.FieldPhone])

	p, ok := sess.List().Lookup("new1")
	require.True(t, ok)
	assert.Equal(t, "Dee", p.ContactPerson)
}

func TestShowCommand(t *testing.T) {
	sess, _ := setupSession(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, ShowCommand(ctx, sess, &out, []string{"c"}))
	assert.Contains(t, out.String(), "Gamma")
	assert.Contains(t, out.String(), "Archived:")

	err := ShowCommand(ctx, sess, &out, []string{"zzz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	assert.Error(t, ShowCommand(ctx, sess, &out, nil))
}

func TestStatusCommand(t *testing.T) {
	sess, ms := setupSession(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, StatusCommand(ctx, sess, &out, []string{"a", "Won"}))
	assert.Contains(t, out.String(), "set to Won")
	p, _ := sess.List().Lookup("a")
	assert.Equal(t, "Won", p.Status)
	assert.Equal(t, listview.Idle, sess.StatusState().State)

	err := StatusCommand(ctx, sess, &out, []string{"zzz", "Won"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Len(t, ms.Calls(store.OpUpdate), 1)
}

func TestArchiveCommandAsksFirst(t *testing.T) {
	sess, ms := setupSession(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, ArchiveCommand(ctx, sess, IO{In: strings.NewReader("n\n"), Out: &out}, []string{"a"}))
	assert.Contains(t, out.String(), "Archive Acme (Anna)?")
	assert.Contains(t, out.String(), "Cancelled")
	assert.Empty(t, ms.Calls(store.OpUpdate))
	assert.Equal(t, listview.Idle, sess.ArchiveState().State)

	out.Reset()
	require.NoError(t, ArchiveCommand(ctx, sess, IO{In: strings.NewReader("yes\n"), Out: &out}, []string{"a"}))
	assert.Contains(t, out.String(), "✓ Prospect archived: a")
	p, _ := sess.List().Lookup("a")
	assert.True(t, p.Archived)
	assert.Equal(t, listview.Idle, sess.ArchiveState().State)
}

func TestDeleteCommand(t *testing.T) {
	sess, ms := setupSession(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, DeleteCommand(ctx, sess, IO{In: strings.NewReader(""), Out: &out}, []string{"b", "--yes"}))
	assert.Contains(t, out.String(), "✓ Prospect deleted: b")
	_, ok := sess.List().Lookup("b")
	assert.False(t, ok)

	ms.FailNext(store.OpDelete, assert.AnError)
	err := DeleteCommand(ctx, sess, IO{In: strings.NewReader(""), Out: &out}, []string{"a", "-y"})
	require.ErrorIs(t, err, assert.AnError)
	_, ok = sess.List().Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, listview.Idle, sess.DeleteState().State)
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.NoError(t, Confirm(strings.NewReader("Y\n"), &out, "Sure?"))
	assert.Equal(t, "Sure? [y/N] ", out.String())
	assert.ErrorIs(t, Confirm(strings.NewReader("\n"), &out, "Sure?"), ErrNotConfirmed)
	assert.ErrorIs(t, Confirm(strings.NewReader(""), &out, "Sure?"), ErrNotConfirmed)
}

func TestStatusesCommand(t *testing.T) {
	sess, _ := setupSession(t)
	sess.AddStatusLabel("Paused")
	var out bytes.Buffer

	require.NoError(t, StatusesCommand(sess, &out, nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, sess.Catalog().Labels(), lines)
	assert.Equal(t, "Paused", lines[len(lines)-1])
}

func TestVizCommand(t *testing.T) {
	sess, _ := setupSession(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, VizCommand(ctx, sess, quietLogger(), &out, nil))
	assert.Contains(t, out.String(), "PROSPEKT DASHBOARD")

	out.Reset()
	require.NoError(t, VizCommand(ctx, sess, quietLogger(), &out, []string{"--format", "dot"}))
	assert.Contains(t, out.String(), "digraph")
	assert.Contains(t, out.String(), "Acme")

	path := filepath.Join(t.TempDir(), "pipeline.dot")
	out.Reset()
	require.NoError(t, VizCommand(ctx, sess, quietLogger(), &out, []string{"-f", "dot", "-o", path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph")

	assert.Error(t, VizCommand(ctx, sess, quietLogger(), &out, []string{"--format", "png"}))
}

func TestSyncAutoCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Path = filepath.Join(t.TempDir(), "config.json")
	var out bytes.Buffer

	require.NoError(t, SyncCommand(cfg, quietLogger(), &out, []string{"auto", "off"}))
	assert.False(t, cfg.AutoSync)
	assert.Contains(t, out.String(), "Auto-sync off")

	loaded, err := config.Load(config.LoadInput{ConfigPath: cfg.Path, DotEnvPath: filepath.Join(t.TempDir(), "none"), Env: map[string]string{}})
	require.NoError(t, err)
	assert.False(t, loaded.AutoSync)

	assert.Error(t, SyncCommand(cfg, quietLogger(), &out, []string{"auto", "maybe"}))
}

func TestSyncCommandNeedsCharmBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendSQLite
	var out bytes.Buffer

	err := SyncCommand(cfg, quietLogger(), &out, []string{"now"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charm backend")

	assert.Error(t, SyncCommand(cfg, quietLogger(), &out, nil))
	assert.Error(t, SyncCommand(cfg, quietLogger(), &out, []string{"bogus"}))
}

func TestOpenBackendSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "prospekt.db")
	var out bytes.Buffer
	ctx := context.Background()

	err := WithSession(ctx, cfg, quietLogger(), nil, func(sess *listview.Session) error {
		return AddCommand(ctx, sess, &out, []string{"--company", "Epsilon"})
	})
	require.NoError(t, err)

	out.Reset()
	err = WithSession(ctx, cfg, quietLogger(), nil, func(sess *listview.Session) error {
		return ListCommand(ctx, sess, &out, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Epsilon")
}
