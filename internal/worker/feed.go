package worker

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/alert"
	"github.com/mentionwatch/console/internal/dashboard"
)

// FeedLogger logs alert feed changes of every dashboard: raised alerts when
// they first appear and cleared alerts when they leave the feed.
type FeedLogger struct {
	logger zerolog.Logger

	mu     sync.Mutex
	active map[string]map[string]alert.Alert

	unsubscribes []func()
}

// WatchAlerts subscribes a FeedLogger to every dashboard in registry.
func WatchAlerts(registry *dashboard.Registry, logger zerolog.Logger) *FeedLogger {
	f := &FeedLogger{
		logger: logger,
		active: make(map[string]map[string]alert.Alert),
	}
	for _, d := range registry.List() {
		f.unsubscribes = append(f.unsubscribes, d.Subscribe(f.observe))
	}
	return f
}

// Stop unsubscribes from every dashboard.
func (f *FeedLogger) Stop() {
	for _, unsubscribe := range f.unsubscribes {
		unsubscribe()
	}
}

// Active returns the number of active alerts last seen for a dashboard.
func (f *FeedLogger) Active(dashboardID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active[dashboardID])
}

func (f *FeedLogger) observe(view dashboard.View) {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous := f.active[view.Dashboard]
	current := make(map[string]alert.Alert, len(view.Alerts))

	for _, a := range view.Alerts {
		current[a.ID] = a
		if _, seen := previous[a.ID]; seen {
			continue
		}
		level := zerolog.InfoLevel
		if a.Severity == alert.SeverityHigh {
			level = zerolog.WarnLevel
		}
		f.logger.WithLevel(level).
			Str("dashboard", view.Dashboard).
			Str("alert_id", a.ID).
			Str("severity", string(a.Severity)).
			Str("service", a.Service).
			Msg(a.Title)
	}

	for id, a := range previous {
		if _, still := current[id]; still {
			continue
		}
		f.logger.Info().
			Str("dashboard", view.Dashboard).
			Str("alert_id", id).
			Str("severity", string(a.Severity)).
			Msg("alert cleared")
	}

	f.active[view.Dashboard] = current
}
