package dashboard

import (
	"errors"

	"github.com/mentionwatch/console/internal/alert"
	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/signal"
)

// Dashboard errors.
var (
	ErrNotFound  = errors.New("dashboard not found")
	ErrDuplicate = errors.New("dashboard already registered")
)

// View is everything a dashboard renders, derived from one aggregated state.
type View struct {
	Dashboard  string                  `json:"dashboard"`
	Title      string                  `json:"title"`
	State      *signal.AggregatedState `json:"state,omitempty"`
	Health     health.Report           `json:"health"`
	Alerts     []alert.Alert           `json:"alerts"`
	AlertCount int                     `json:"alertCount"`
	Counts     map[alert.Severity]int  `json:"counts"`
	Refreshing bool                    `json:"refreshing"`
}

// BuildView derives the view of state. It is a pure function: the same state
// and thresholds always give the same view. A nil state gives an empty view
// with every dimension unknown.
func BuildView(id, title string, state *signal.AggregatedState, t health.Thresholds) View {
	alerts := alert.Synthesize(state, t)
	return View{
		Dashboard:  id,
		Title:      title,
		State:      state,
		Health:     health.Evaluate(state, t),
		Alerts:     alerts,
		AlertCount: len(alerts),
		Counts:     alert.Counts(alerts),
	}
}
