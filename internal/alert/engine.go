// Package alert synthesizes the alert feed of a dashboard from one
// aggregated state. The feed is recomputed from scratch every cycle and
// replaces the previous one; nothing is carried between cycles.
package alert

import (
	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/signal"
)

// Rule inspects one slice of the state and emits zero or more alerts.
// Rules are independent: one rule firing never suppresses another.
type Rule struct {
	Name     string
	Evaluate func(state *signal.AggregatedState, t health.Thresholds) []Alert
}

// Rules returns the ordered rule set.
func Rules() []Rule {
	return []Rule{
		{Name: "source-unavailability", Evaluate: sourceUnavailability},
		{Name: "quota-exhaustion", Evaluate: quotaExhaustion},
		{Name: "elevated-usage", Evaluate: elevatedUsage},
		{Name: "subsystem-degradation", Evaluate: subsystemDegradation},
		{Name: "queue-health", Evaluate: queueHealth},
		{Name: "cursor-health", Evaluate: cursorHealth},
		{Name: "cron-health", Evaluate: cronHealth},
		{Name: "recovery-failures", Evaluate: recoveryFailures},
	}
}

// Synthesize runs the default rule set against state.
func Synthesize(state *signal.AggregatedState, t health.Thresholds) []Alert {
	return Run(Rules(), state, t)
}

// Run evaluates rules in order and concatenates their alerts. If two rules
// emit the same ID the first wins. The result is never nil.
func Run(rules []Rule, state *signal.AggregatedState, t health.Thresholds) []Alert {
	alerts := make([]Alert, 0)
	seen := make(map[string]struct{})
	for _, rule := range rules {
		for _, a := range rule.Evaluate(state, t) {
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			alerts = append(alerts, a)
		}
	}
	return alerts
}
