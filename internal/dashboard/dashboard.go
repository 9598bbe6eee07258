// Package dashboard turns the aggregated state of a controller into the
// view an operator sees: health badges, the alert feed and its counts.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/aggregator"
	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/signal"
)

// Config holds configuration for a Dashboard.
type Config struct {
	// ID is the stable dashboard identifier used in URLs.
	ID string

	// Title is the human-readable name.
	Title string

	// Controller runs the dashboard's aggregation cycles (required).
	Controller *aggregator.Controller

	// Thresholds is the policy table used for health and alerts.
	Thresholds health.Thresholds

	// Metrics records alert gauges (optional).
	Metrics *Metrics

	// Logger for dashboard operations.
	Logger zerolog.Logger
}

// ViewSubscriber receives every rebuilt view.
type ViewSubscriber func(view View)

// Dashboard rebuilds its view whenever its controller publishes a state.
type Dashboard struct {
	id         string
	title      string
	controller *aggregator.Controller
	thresholds health.Thresholds
	metrics    *Metrics
	logger     zerolog.Logger

	view        atomic.Pointer[View]
	unsubscribe func()

	mu      sync.RWMutex
	subs    map[uint64]ViewSubscriber
	nextSub uint64
}

// New creates a dashboard and subscribes it to its controller.
func New(cfg Config) *Dashboard {
	d := &Dashboard{
		id:         cfg.ID,
		title:      cfg.Title,
		controller: cfg.Controller,
		thresholds: cfg.Thresholds,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("dashboard", cfg.ID).Logger(),
		subs:       make(map[uint64]ViewSubscriber),
	}

	empty := BuildView(d.id, d.title, nil, d.thresholds)
	d.view.Store(&empty)
	d.unsubscribe = cfg.Controller.Subscribe(d.rebuild)

	return d
}

// ID returns the dashboard identifier.
func (d *Dashboard) ID() string {
	return d.id
}

// Title returns the dashboard title.
func (d *Dashboard) Title() string {
	return d.title
}

// Controller returns the dashboard's aggregation controller.
func (d *Dashboard) Controller() *aggregator.Controller {
	return d.controller
}

// View returns the latest view. Refreshing reflects the controller right now.
func (d *Dashboard) View() View {
	v := *d.view.Load()
	v.Refreshing = d.controller.Refreshing()
	return v
}

// Refresh triggers a manual cycle. When a cycle is already running the
// trigger is coalesced: the current view is returned with coalesced set.
func (d *Dashboard) Refresh(ctx context.Context) (view View, coalesced bool, err error) {
	_, err = d.controller.Refresh(ctx)
	if errors.Is(err, aggregator.ErrRefreshInProgress) {
		return d.View(), true, nil
	}
	if err != nil {
		return View{}, false, err
	}
	return d.View(), false, nil
}

// Run runs the controller until ctx is done.
func (d *Dashboard) Run(ctx context.Context) error {
	return d.controller.Run(ctx)
}

// Subscribe registers fn for every rebuilt view.
func (d *Dashboard) Subscribe(fn ViewSubscriber) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

// Close detaches the dashboard from its controller.
func (d *Dashboard) Close() {
	d.unsubscribe()
}

func (d *Dashboard) rebuild(state *signal.AggregatedState) {
	view := BuildView(d.id, d.title, state, d.thresholds)
	d.view.Store(&view)

	d.metrics.recordAlerts(context.Background(), d.id, view.Counts)
	d.logger.Debug().
		Uint64("cycle", state.Cycle).
		Int("alerts", view.AlertCount).
		Str("overall", string(view.Health.Overall)).
		Msg("dashboard view rebuilt")

	d.mu.RLock()
	subs := make([]ViewSubscriber, 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.RUnlock()

	for _, fn := range subs {
		fn(view)
	}
}
