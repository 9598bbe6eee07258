// Package health classifies raw signal readings into coarse health tiers.
//
// Every function here is pure: the result depends only on the arguments and
// the threshold table, never on earlier readings.
package health

import (
	"math"
	"strings"
	"time"
)

// Tier is a coarse health classification for one signal dimension.
type Tier string

const (
	TierHealthy  Tier = "healthy"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierUnknown  Tier = "unknown"
)

// rank orders known tiers by badness. Unknown sorts below healthy so that it
// never masks a real reading when tiers are combined.
func (t Tier) rank() int {
	switch t {
	case TierHealthy:
		return 1
	case TierWarning:
		return 2
	case TierCritical:
		return 3
	default:
		return 0
	}
}

// Worst returns the most severe known tier. If every tier is unknown (or none
// are given) the result is TierUnknown.
func Worst(tiers ...Tier) Tier {
	worst := TierUnknown
	for _, t := range tiers {
		if t.rank() > worst.rank() {
			worst = t
		}
	}
	return worst
}

// ClassifyUtilization maps a utilization percentage to a tier.
// The boundaries are inclusive: exactly the critical percentage is critical.
func ClassifyUtilization(pct float64, t Thresholds) Tier {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return TierUnknown
	}
	switch {
	case pct >= t.UtilizationCriticalPct:
		return TierCritical
	case pct >= t.UtilizationWarningPct:
		return TierWarning
	default:
		return TierHealthy
	}
}

// ClassifyRecency grades the age of the last activity against the expected
// frequency: healthy up to frequency+buffer, warning up to twice the
// frequency, critical beyond that.
func ClassifyRecency(elapsedMinutes, frequencyMinutes, bufferMinutes int) Tier {
	switch {
	case elapsedMinutes <= frequencyMinutes+bufferMinutes:
		return TierHealthy
	case elapsedMinutes <= frequencyMinutes*2:
		return TierWarning
	default:
		return TierCritical
	}
}

// FailureRate returns failed/total, or 0 when total is not positive.
func FailureRate(failed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

// ClassifyFailureRate flags a source-partitioned counter whose failure ratio
// is strictly above maxRatio.
func ClassifyFailureRate(failed, total int, maxRatio float64) Tier {
	if FailureRate(failed, total) > maxRatio {
		return TierWarning
	}
	return TierHealthy
}

// ClassifyAge flags long-lived records once their age exceeds threshold.
func ClassifyAge(age, threshold time.Duration) Tier {
	if age > threshold {
		return TierWarning
	}
	return TierHealthy
}

// ElapsedMinutes returns whole minutes between then and now, floored.
// A timestamp in the future counts as zero elapsed minutes.
func ElapsedMinutes(then, now time.Time) int {
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Subsystem status strings reported by the system health signal.
const (
	StatusHealthy          = "healthy"
	StatusActive           = "active"
	StatusOK               = "ok"
	StatusDegraded         = "degraded"
	StatusNoRecentActivity = "no_recent_activity"
	StatusEmpty            = "empty"
	StatusInactive         = "inactive"
	StatusError            = "error"
)

// ClassifySubsystem maps an upstream subsystem status string to a tier.
// Unrecognized strings are unknown rather than guessed.
func ClassifySubsystem(status string) Tier {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusHealthy, StatusActive, StatusOK:
		return TierHealthy
	case StatusDegraded, StatusNoRecentActivity, StatusEmpty:
		return TierWarning
	case StatusInactive, StatusError:
		return TierCritical
	default:
		return TierUnknown
	}
}
