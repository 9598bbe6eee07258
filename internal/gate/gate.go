// Package gate decides whether an automated fetch may run now, given the
// user's configured frequency and the time of their last successful fetch.
package gate

import (
	"fmt"
	"time"

	"github.com/mentionwatch/console/internal/health"
)

// DefaultBufferMinutes is the grace added to the frequency before the
// automation is considered degraded.
const DefaultBufferMinutes = 5

// Tier is the freshness of a user's automated fetching.
type Tier string

const (
	TierHealthy  Tier = "healthy"
	TierDegraded Tier = "degraded"
	TierStale    Tier = "stale"
)

// State is the derived eligibility of an automated fetch.
type State struct {
	CanFetch         bool `json:"canFetch"`
	MinutesUntilNext int  `json:"minutesUntilNext"`
	Tier             Tier `json:"tier"`
	// ElapsedMinutes is -1 when there has been no fetch yet.
	ElapsedMinutes int `json:"elapsedMinutes"`
}

// Evaluate computes the gate with the default buffer.
func Evaluate(lastFetchAt *time.Time, frequencyMinutes int, now time.Time) State {
	return EvaluateWithBuffer(lastFetchAt, frequencyMinutes, DefaultBufferMinutes, now)
}

// EvaluateWithBuffer computes the gate. Elapsed time is floored to whole
// minutes; a last fetch in the future counts as zero minutes ago. A user who
// has never fetched may fetch immediately and is reported stale.
func EvaluateWithBuffer(lastFetchAt *time.Time, frequencyMinutes, bufferMinutes int, now time.Time) State {
	if lastFetchAt == nil {
		return State{
			CanFetch:         true,
			MinutesUntilNext: 0,
			Tier:             TierStale,
			ElapsedMinutes:   -1,
		}
	}

	elapsed := health.ElapsedMinutes(*lastFetchAt, now)

	return State{
		CanFetch:         elapsed >= frequencyMinutes,
		MinutesUntilNext: max(0, frequencyMinutes-elapsed),
		Tier:             tierFor(health.ClassifyRecency(elapsed, frequencyMinutes, bufferMinutes)),
		ElapsedMinutes:   elapsed,
	}
}

func tierFor(t health.Tier) Tier {
	switch t {
	case health.TierHealthy:
		return TierHealthy
	case health.TierWarning:
		return TierDegraded
	default:
		return TierStale
	}
}

// StatusLine renders the state as the "next fetch" countdown shown next to
// the automation toggle.
func (s State) StatusLine() string {
	switch {
	case s.ElapsedMinutes < 0:
		return "No automated fetch yet; next fetch can run now"
	case s.CanFetch:
		return "Next fetch can run now"
	case s.MinutesUntilNext == 1:
		return "Next fetch in 1 minute"
	default:
		return fmt.Sprintf("Next fetch in %d minutes", s.MinutesUntilNext)
	}
}
