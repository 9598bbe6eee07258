package worker_test

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionwatch/console/internal/aggregator"
	"github.com/mentionwatch/console/internal/dashboard"
	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/signal"
	"github.com/mentionwatch/console/internal/worker"
)

type recoverySource struct {
	failed atomic.Int64
	calls  atomic.Int64
}

func (s *recoverySource) ID() signal.SourceID { return signal.SourceRecovery }

func (s *recoverySource) Fetch(context.Context) signal.Snapshot {
	s.calls.Add(1)
	return signal.Snapshot{
		SourceID:  signal.SourceRecovery,
		FetchedAt: time.Now(),
		OK:        true,
		Payload:   signal.RecoveryStatus{Failed: int(s.failed.Load())},
	}
}

func newRegistry(t *testing.T, ids ...string) (*dashboard.Registry, map[string]*recoverySource) {
	t.Helper()
	registry := dashboard.NewRegistry()
	sources := make(map[string]*recoverySource)
	for _, id := range ids {
		src := &recoverySource{}
		sources[id] = src
		c := aggregator.New(aggregator.Config{Name: id, Sources: []signal.Source{src}, Interval: time.Hour, Logger: zerolog.Nop()})
		d := dashboard.New(dashboard.Config{ID: id, Title: id, Controller: c, Thresholds: health.DefaultThresholds(), Logger: zerolog.Nop()})
		require.NoError(t, registry.Add(d))
		t.Cleanup(d.Close)
	}
	return registry, sources
}

func TestTriggerHandler_RefreshesAll(t *testing.T) {
	registry, sources := newRegistry(t, "operations", "cursors")
	h := worker.NewTriggerHandler(registry, zerolog.Nop())

	result, err := h.Handle(context.Background(), []byte(`{"job_type":"dashboard_refresh"}`))

	require.NoError(t, err)
	assert.Equal(t, []string{"operations", "cursors"}, result.Refreshed)
	assert.Equal(t, int64(1), sources["operations"].calls.Load())
	assert.Equal(t, int64(1), sources["cursors"].calls.Load())
}

func TestTriggerHandler_SelectedAndUnknown(t *testing.T) {
	registry, sources := newRegistry(t, "operations", "cursors")
	h := worker.NewTriggerHandler(registry, zerolog.Nop())

	result, err := h.Handle(context.Background(), []byte(`{"job_type":"dashboard_refresh","dashboards":["cursors","billing"]}`))

	require.NoError(t, err)
	assert.Equal(t, []string{"cursors"}, result.Refreshed)
	assert.Equal(t, []string{"billing"}, result.Unknown)
	assert.Zero(t, sources["operations"].calls.Load())
}

func TestTriggerHandler_DiscardsUnusableMessages(t *testing.T) {
	registry, sources := newRegistry(t, "operations")
	h := worker.NewTriggerHandler(registry, zerolog.Nop())

	for _, payload := range []string{`not json`, `{"job_type":"provider_refresh"}`} {
		result, err := h.Handle(context.Background(), []byte(payload))
		require.NoError(t, err, payload)
		assert.Empty(t, result.Refreshed)
	}
	assert.Zero(t, sources["operations"].calls.Load())
}

func TestTriggerHandler_CancelledContextIsRetryable(t *testing.T) {
	registry, _ := newRegistry(t, "operations")
	h := worker.NewTriggerHandler(registry, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Handle(ctx, []byte(`{"job_type":"dashboard_refresh"}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFeedLogger_LogsRaisedAndCleared(t *testing.T) {
	registry, sources := newRegistry(t, "operations")
	d, err := registry.Get("operations")
	require.NoError(t, err)

	var buf bytes.Buffer
	feed := worker.WatchAlerts(registry, zerolog.New(&buf))
	defer feed.Stop()

	sources["operations"].failed.Store(2)
	_, _, err = d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Active("operations"))
	assert.Contains(t, buf.String(), `"alert_id":"recovery-failures"`)

	buf.Reset()
	_, _, err = d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "an alert that persists is logged once")

	sources["operations"].failed.Store(0)
	_, _, err = d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, feed.Active("operations"))
	assert.True(t, strings.Contains(buf.String(), "alert cleared"))
}
