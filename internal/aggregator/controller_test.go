package aggregator_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionwatch/console/internal/aggregator"
	"github.com/mentionwatch/console/internal/signal"
)

type fakeSource struct {
	id    signal.SourceID
	calls atomic.Int32
	fetch func(ctx context.Context) signal.Snapshot
}

func (f *fakeSource) ID() signal.SourceID { return f.id }

func (f *fakeSource) Fetch(ctx context.Context) signal.Snapshot {
	f.calls.Add(1)
	return f.fetch(ctx)
}

func okSource(id signal.SourceID, payload any) *fakeSource {
	return &fakeSource{id: id, fetch: func(context.Context) signal.Snapshot {
		return signal.Snapshot{SourceID: id, OK: true, FetchedAt: time.Now(), Payload: payload}
	}}
}

func failingSource(id signal.SourceID) *fakeSource {
	return &fakeSource{id: id, fetch: func(context.Context) signal.Snapshot {
		return signal.Snapshot{SourceID: id, FetchedAt: time.Now(), Error: "connection refused"}
	}}
}

// blockingSource signals entered on each fetch and waits for release.
func blockingSource(id signal.SourceID, entered chan<- struct{}, release <-chan struct{}) *fakeSource {
	return &fakeSource{id: id, fetch: func(context.Context) signal.Snapshot {
		entered <- struct{}{}
		<-release
		return signal.Snapshot{SourceID: id, OK: true, FetchedAt: time.Now(), Payload: signal.RecoveryStatus{}}
	}}
}

func newController(sources ...signal.Source) *aggregator.Controller {
	return aggregator.New(aggregator.Config{
		Name:     "ops",
		Sources:  sources,
		Interval: time.Hour,
		Logger:   zerolog.Nop(),
	})
}

func TestRefresh_IsolatesFailedSource(t *testing.T) {
	queue := okSource(signal.SourceQueue, signal.QueueStats{Failed: 1})
	quota := failingSource(signal.SourceQuota)
	recovery := okSource(signal.SourceRecovery, signal.RecoveryStatus{})

	c := newController(queue, quota, recovery)

	state, err := c.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, state.Snapshots, 3)
	assert.True(t, state.Snapshots[signal.SourceQueue].OK)
	assert.False(t, state.Snapshots[signal.SourceQuota].OK)
	assert.True(t, state.Snapshots[signal.SourceRecovery].OK)
	assert.Equal(t, []signal.SourceID{signal.SourceQuota}, state.Failed())
	assert.Equal(t, uint64(1), state.Cycle)
	assert.Same(t, state, c.State())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.TotalCycles)
	assert.Equal(t, int64(1), stats.SourceFailures)
	assert.Equal(t, []string{"quota"}, stats.LastFailedSources)
}

func TestRefresh_WaitsForEverySource(t *testing.T) {
	slow := &fakeSource{id: signal.SourceCron, fetch: func(context.Context) signal.Snapshot {
		time.Sleep(50 * time.Millisecond)
		return signal.Snapshot{SourceID: signal.SourceCron, OK: true, Payload: signal.CronHistory{}}
	}}
	fast := okSource(signal.SourceQueue, signal.QueueStats{})

	c := newController(slow, fast)

	state, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Snapshots[signal.SourceCron].OK)
	assert.True(t, state.Snapshots[signal.SourceQueue].OK)
	assert.GreaterOrEqual(t, state.CycleCompletedAt.Sub(state.CycleStartedAt), 50*time.Millisecond)
}

func TestRefresh_DropsOverlappingTrigger(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := blockingSource(signal.SourceRecovery, entered, release)
	other := okSource(signal.SourceQueue, signal.QueueStats{})

	c := newController(blocking, other)

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		done <- err
	}()

	<-entered
	assert.True(t, c.Refreshing())

	state, err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, aggregator.ErrRefreshInProgress)
	assert.Nil(t, state, "nothing published yet")
	assert.Equal(t, int32(1), blocking.calls.Load())
	assert.Equal(t, int32(1), other.calls.Load(), "overlapping trigger must not fetch")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Refreshing())
	assert.Equal(t, int64(1), c.Stats().CoalescedTriggers)
	assert.Equal(t, int64(1), c.Stats().TotalCycles)
}

func TestRefresh_RecoversPanickingSource(t *testing.T) {
	bad := &fakeSource{id: signal.SourceCursors, fetch: func(context.Context) signal.Snapshot {
		panic("nil map")
	}}
	good := okSource(signal.SourceQueue, signal.QueueStats{})

	c := newController(bad, good)

	state, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Snapshots[signal.SourceCursors].OK)
	assert.Contains(t, state.Snapshots[signal.SourceCursors].Error, "nil map")
	assert.True(t, state.Snapshots[signal.SourceQueue].OK)
}

func TestRefresh_CancelledCycleIsNotPublished(t *testing.T) {
	c := newController(okSource(signal.SourceQueue, signal.QueueStats{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, c.State())
}

func TestSubscribe(t *testing.T) {
	c := newController(okSource(signal.SourceQueue, signal.QueueStats{}))

	var mu sync.Mutex
	var received []uint64
	unsubscribe := c.Subscribe(func(s *signal.AggregatedState) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, s.Cycle)
	})
	assert.Equal(t, 1, c.Subscribers())

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, c.Subscribers())

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []uint64{1, 2}, received)
	mu.Unlock()
}

func TestSubscribe_ReceivesCurrentState(t *testing.T) {
	c := newController(okSource(signal.SourceQueue, signal.QueueStats{}))
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	var got *signal.AggregatedState
	unsubscribe := c.Subscribe(func(s *signal.AggregatedState) { got = s })
	defer unsubscribe()

	assert.Same(t, c.State(), got)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	src := okSource(signal.SourceQueue, signal.QueueStats{})
	c := aggregator.New(aggregator.Config{
		Name:     "ticker",
		Sources:  []signal.Source{src},
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	calls := src.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, src.calls.Load(), "no cycles after teardown")
}

func TestNew_Defaults(t *testing.T) {
	c := aggregator.New(aggregator.Config{Name: "x", Logger: zerolog.Nop()})

	assert.Equal(t, aggregator.DefaultInterval, c.Interval())
	assert.Equal(t, "x", c.Name())
	assert.Nil(t, c.State())
	assert.Empty(t, c.SourceIDs())
}
