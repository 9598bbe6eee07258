// Package aggregator runs aggregation cycles for one dashboard: it fetches
// every registered signal source concurrently, waits for all of them to
// settle, and publishes the resulting state atomically to subscribers.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mentionwatch/console/internal/signal"
)

// DefaultInterval is the refresh interval used when none is configured.
const DefaultInterval = 30 * time.Second

// Config holds configuration for a Controller.
type Config struct {
	// Name identifies the dashboard in logs, metrics and spans.
	Name string

	// Sources are fetched every cycle.
	Sources []signal.Source

	// Interval between timer-driven cycles.
	// Default: 30 seconds
	Interval time.Duration

	// Logger for cycle operations.
	Logger zerolog.Logger

	// Metrics records cycle instruments (optional).
	Metrics *Metrics

	// Tracer starts cycle and fetch spans. Defaults to the global tracer.
	Tracer trace.Tracer

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Subscriber receives every published state. It is called synchronously
// from the publishing cycle and must not block.
type Subscriber func(state *signal.AggregatedState)

// Controller is the aggregation cycle state machine for one dashboard.
// It is either idle or refreshing; at most one cycle runs at a time.
type Controller struct {
	name     string
	sources  []signal.Source
	interval time.Duration
	logger   zerolog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time

	refreshing atomic.Bool
	cycle      atomic.Uint64
	state      atomic.Pointer[signal.AggregatedState]

	// deliverMu orders publication against subscription so a subscriber
	// never sees an older state after a newer one.
	deliverMu sync.Mutex
	subMu     sync.RWMutex
	subs      map[uint64]Subscriber
	nextSub   uint64

	statsMu sync.RWMutex
	stats   Stats
}

// New creates a controller. No cycle runs until Run or Refresh is called.
func New(cfg Config) *Controller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{
		name:     cfg.Name,
		sources:  append([]signal.Source(nil), cfg.Sources...),
		interval: interval,
		logger:   cfg.Logger.With().Str("dashboard", cfg.Name).Logger(),
		metrics:  cfg.Metrics,
		tracer:   tracer,
		now:      now,
		subs:     make(map[uint64]Subscriber),
	}
}

// Name returns the dashboard name.
func (c *Controller) Name() string {
	return c.name
}

// Interval returns the timer interval.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// SourceIDs returns the ids of the registered sources in registration order.
func (c *Controller) SourceIDs() []signal.SourceID {
	ids := make([]signal.SourceID, 0, len(c.sources))
	for _, s := range c.sources {
		ids = append(ids, s.ID())
	}
	return ids
}

// State returns the last published state, or nil before the first cycle.
// The returned state must be treated as read-only.
func (c *Controller) State() *signal.AggregatedState {
	return c.state.Load()
}

// Refreshing reports whether a cycle is in flight.
func (c *Controller) Refreshing() bool {
	return c.refreshing.Load()
}

// Run executes a cycle immediately and then one per interval until ctx is
// done. The timer is stopped on return.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.interval).Int("sources", len(c.sources)).Msg("aggregation controller started")

	_, _ = c.Refresh(ctx) //nolint:errcheck // coalesced triggers are expected
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("aggregation controller stopped")
			return ctx.Err()
		case <-ticker.C:
			_, _ = c.Refresh(ctx) //nolint:errcheck // coalesced triggers are expected
		}
	}
}

// Refresh runs one cycle and publishes its state. Timer ticks and manual
// refreshes share this path. If a cycle is already running the trigger is
// dropped: no source is fetched and ErrRefreshInProgress is returned along
// with the last published state.
//
// If ctx is done by the time all sources settle, the cycle is discarded
// without being published.
func (c *Controller) Refresh(ctx context.Context) (*signal.AggregatedState, error) {
	if !c.refreshing.CompareAndSwap(false, true) {
		c.metrics.recordCoalesced(ctx, c.name)
		c.statsMu.Lock()
		c.stats.CoalescedTriggers++
		c.statsMu.Unlock()
		c.logger.Debug().Msg("refresh coalesced into running cycle")
		return c.State(), ErrRefreshInProgress
	}
	defer c.refreshing.Store(false)

	state := c.runCycle(ctx)

	if err := ctx.Err(); err != nil {
		c.logger.Debug().Uint64("cycle", state.Cycle).Msg("cycle discarded after cancellation")
		return c.State(), fmt.Errorf("cycle %d discarded: %w", state.Cycle, err)
	}

	c.publish(state)
	return state, nil
}

// Subscribe registers fn for every future published state. If a state has
// already been published, fn is called with it immediately. The returned
// function unsubscribes; it is safe to call more than once. fn must not call
// Subscribe.
func (c *Controller) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	if current := c.State(); current != nil {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscribers.
func (c *Controller) Subscribers() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs)
}

// Stats returns a copy of the cycle statistics.
func (c *Controller) Stats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	s := c.stats
	s.LastFailedSources = append([]string(nil), c.stats.LastFailedSources...)
	return s
}

func (c *Controller) runCycle(ctx context.Context) *signal.AggregatedState {
	started := c.now()
	cycle := c.cycle.Add(1)

	ctx, span := c.tracer.Start(ctx, "aggregator.cycle", trace.WithAttributes(
		attribute.String("dashboard", c.name),
		attribute.Int64("cycle", int64(cycle)),
	))
	defer span.End()

	snaps := make([]signal.Snapshot, len(c.sources))

	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func(i int, src signal.Source) {
			defer wg.Done()
			snaps[i] = c.fetch(ctx, src)
		}(i, src)
	}
	wg.Wait()

	state := &signal.AggregatedState{
		Cycle:            cycle,
		CycleStartedAt:   started,
		CycleCompletedAt: c.now(),
		Snapshots:        make(map[signal.SourceID]signal.Snapshot, len(snaps)),
	}
	for _, snap := range snaps {
		state.Snapshots[snap.SourceID] = snap
	}

	failed := state.Failed()
	if len(failed) > 0 {
		span.SetAttributes(attribute.Int("failed_sources", len(failed)))
	}
	return state
}

// fetch calls one source. A panicking source becomes a failed snapshot.
func (c *Controller) fetch(ctx context.Context, src signal.Source) (snap signal.Snapshot) {
	id := src.ID()
	ctx, span := c.tracer.Start(ctx, "aggregator.fetch", trace.WithAttributes(
		attribute.String("source", string(id)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("source", string(id)).Interface("panic", r).Msg("signal source panicked")
			snap = signal.Snapshot{
				SourceID:  id,
				FetchedAt: c.now(),
				Error:     fmt.Sprintf("source panicked: %v", r),
			}
			span.SetStatus(codes.Error, snap.Error)
		}
	}()

	snap = src.Fetch(ctx)
	snap.SourceID = id
	if !snap.OK {
		span.SetStatus(codes.Error, snap.Error)
	}
	return snap
}

func (c *Controller) publish(state *signal.AggregatedState) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.state.Store(state)

	duration := state.CycleCompletedAt.Sub(state.CycleStartedAt)
	failed := state.Failed()
	failedNames := make([]string, 0, len(failed))
	for _, id := range failed {
		failedNames = append(failedNames, string(id))
	}

	c.statsMu.Lock()
	c.stats.TotalCycles++
	c.stats.SourceFailures += int64(len(failed))
	c.stats.LastCycleAt = state.CycleCompletedAt
	c.stats.LastCycleDuration = duration
	c.stats.LastFailedSources = failedNames
	c.statsMu.Unlock()

	c.metrics.recordCycle(context.Background(), c.name, duration, failed)

	c.logger.Info().
		Uint64("cycle", state.Cycle).
		Dur("duration", duration).
		Int("sources", len(state.Snapshots)).
		Strs("failed_sources", failedNames).
		Msg("aggregation cycle completed")

	c.subMu.RLock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range subs {
		fn(state)
	}
}
