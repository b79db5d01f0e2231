// ABOUTME: Tests for List snapshot replacement and subscription lifetime
// ABOUTME: Uses the in-memory store to drive snapshots and failures deterministically
package listview

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

func quiet() Option {
	return WithLogger(log.New(io.Discard))
}

func seeded(t *testing.T, docs ...models.Fields) *store.MemoryStore {
	t.Helper()
	ms := store.NewMemoryStore()
	for i, d := range docs {
		require.NoError(t, ms.Put(store.Collection, string(rune('1'+i)), d))
	}
	return ms
}

func TestOpenAppliesInitialSnapshot(t *testing.T) {
	ms := seeded(t, models.Fields{"company": "Acme"}, models.Fields{"company": "Beta"})

	l, err := Open(context.Background(), ms, quiet())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	assert.Equal(t, PhaseLive, l.Phase())
	assert.Equal(t, 2, l.Len())
	p, ok := l.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, "Beta", p.Company)
	require.NoError(t, l.Wait(context.Background()))
}

func TestSnapshotsReplaceWholeSet(t *testing.T) {
	ms := seeded(t, models.Fields{"company": "Acme"})
	l, err := Open(context.Background(), ms, quiet())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	require.NoError(t, ms.Delete(context.Background(), store.Collection, "1"))
	require.NoError(t, ms.Put(store.Collection, "9", models.Fields{"company": "Other client"}))

	records := l.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "9", records[0].ID)
	_, ok := l.Lookup("1")
	assert.False(t, ok)
}

func TestRecordsReturnsCopy(t *testing.T) {
	ms := seeded(t, models.Fields{"company": "Acme"})
	l, err := Open(context.Background(), ms, quiet())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	records := l.Records()
	records[0].Company = "mutated"
	p, _ := l.Lookup("1")
	assert.Equal(t, "Acme", p.Company)
}

func TestCloseReleasesSubscription(t *testing.T) {
	ms := seeded(t, models.Fields{"company": "Acme"})
	l, err := Open(context.Background(), ms, quiet())
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Subscribers())

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 0, ms.Subscribers())

	require.NoError(t, ms.Put(store.Collection, "2", models.Fields{"company": "Late"}))
	assert.Equal(t, 1, l.Len())
}

func TestRunReleasesOnError(t *testing.T) {
	ms := seeded(t)
	boom := errors.New("boom")
	err := Run(context.Background(), ms, func(l *List) error {
		assert.Equal(t, 1, ms.Subscribers())
		return boom
	}, quiet())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, ms.Subscribers())
}

func TestRunReleasesOnPanic(t *testing.T) {
	ms := seeded(t)
	assert.Panics(t, func() {
		_ = Run(context.Background(), ms, func(*List) error { panic("render blew up") }, quiet())
	})
	assert.Equal(t, 0, ms.Subscribers())
}

func TestOpenWithCancelledContextReleases(t *testing.T) {
	ms := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, ms, quiet())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ms.Subscribers())
}

func TestSubscribeErrorWrapsSentinel(t *testing.T) {
	ms := seeded(t)
	ms.FailNext(store.OpSubscribe, errors.New("permission denied"))

	_, err := Open(context.Background(), ms, quiet())
	assert.ErrorIs(t, err, ErrSubscriptionFailed)
}

func TestSubscriptionFailureIsTerminal(t *testing.T) {
	ms := seeded(t, models.Fields{"company": "Acme"})
	changes := 0
	l, err := Open(context.Background(), ms, quiet(), WithChangeListener(func() { changes++ }))
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	assert.Equal(t, 1, changes)

	ms.BreakSubscriptions(store.Collection, errors.New("permission denied"))
	assert.Equal(t, PhaseFailed, l.Phase())
	assert.ErrorIs(t, l.Err(), ErrSubscriptionFailed)
	assert.Equal(t, 2, changes)
	assert.Equal(t, 0, ms.Subscribers())

	require.NoError(t, ms.Put(store.Collection, "2", models.Fields{"company": "Ignored"}))
	assert.Equal(t, 1, l.Len())
	assert.ErrorIs(t, l.Wait(context.Background()), ErrSubscriptionFailed)
}

func TestOnChangeRunsAfterEverySnapshot(t *testing.T) {
	ms := seeded(t)
	l, err := Open(context.Background(), ms, quiet())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	var seen []int
	l.OnChange(func() { seen = append(seen, l.Len()) })
	_, err = ms.Create(context.Background(), store.Collection, models.Fields{"company": "A"})
	require.NoError(t, err)
	_, err = ms.Create(context.Background(), store.Collection, models.Fields{"company": "B"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestWaitHonoursContext(t *testing.T) {
	l := &List{ready: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
