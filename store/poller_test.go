// ABOUTME: Tests for the polling snapshot feed
// ABOUTME: Verifies initial delivery, change detection, notify wakeups, and fatal list errors
package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/prospekt/models"
)

type fakeSource struct {
	mu      sync.Mutex
	records []models.Prospect
	err     error
	lists   int
}

func (f *fakeSource) list(_ context.Context, _ string) ([]models.Prospect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Prospect, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeSource) set(records ...models.Prospect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type syncRecorder struct {
	mu        sync.Mutex
	snapshots [][]models.Prospect
	errs      []error
}

func (r *syncRecorder) onSnapshot(records []models.Prospect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, records)
}

func (r *syncRecorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *syncRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *syncRecorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestPollerDeliversInitialSnapshot(t *testing.T) {
	src := &fakeSource{records: []models.Prospect{{ID: "1", Company: "Acme"}}}
	p := NewPoller(src.list, PollerOptions{Interval: time.Hour, Logger: quietLogger()})

	var r syncRecorder
	sub, err := p.Subscribe(context.Background(), Collection, r.onSnapshot, r.onError)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, p.Active())
}

func TestPollerNotifySkipsUnchangedSnapshots(t *testing.T) {
	src := &fakeSource{records: []models.Prospect{{ID: "1", Company: "Acme"}}}
	p := NewPoller(src.list, PollerOptions{Interval: time.Hour, Logger: quietLogger()})

	var r syncRecorder
	sub, err := p.Subscribe(context.Background(), Collection, r.onSnapshot, r.onError)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()
	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)

	p.Notify()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, r.count())

	src.set(models.Prospect{ID: "1", Company: "Acme"}, models.Prospect{ID: "2", Company: "Beta"})
	p.Notify()
	require.Eventually(t, func() bool { return r.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPollerTickerRefreshesAndPolls(t *testing.T) {
	src := &fakeSource{}
	var refreshes sync.WaitGroup
	refreshes.Add(1)
	var once sync.Once
	p := NewPoller(src.list, PollerOptions{
		Interval: 10 * time.Millisecond,
		Logger:   quietLogger(),
		Refresh: func(context.Context) error {
			once.Do(refreshes.Done)
			return errors.New("offline")
		},
	})

	var r syncRecorder
	sub, err := p.Subscribe(context.Background(), Collection, r.onSnapshot, r.onError)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	refreshes.Wait()
	src.set(models.Prospect{ID: "1"})
	require.Eventually(t, func() bool { return r.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, r.errCount())
}

func TestPollerListErrorIsFatal(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src.list, PollerOptions{Interval: time.Hour, Logger: quietLogger()})

	var r syncRecorder
	sub, err := p.Subscribe(context.Background(), Collection, r.onSnapshot, r.onError)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()
	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)

	src.fail(errors.New("disk gone"))
	p.Notify()
	require.Eventually(t, func() bool { return r.errCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return p.Active() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPollerSubscribeFailsWhenInitialListFails(t *testing.T) {
	src := &fakeSource{err: errors.New("nope")}
	p := NewPoller(src.list, PollerOptions{Logger: quietLogger()})

	_, err := p.Subscribe(context.Background(), Collection, func([]models.Prospect) {}, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, p.Active())
}

func TestPollerCloseStopsDelivery(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src.list, PollerOptions{Interval: time.Hour, Logger: quietLogger()})

	var r syncRecorder
	sub, err := p.Subscribe(context.Background(), Collection, r.onSnapshot, r.onError)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	src.set(models.Prospect{ID: "1"})
	p.Notify()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, r.count())
	assert.Equal(t, 0, p.Active())
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := []models.Prospect{{ID: "1", Company: "A"}}
	b := []models.Prospect{{ID: "1", Company: "B"}}
	assert.Equal(t, Fingerprint(a), Fingerprint(a))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
