package signal

import (
	"errors"
	"time"
)

// Signal errors.
var (
	ErrUpstreamFailure = errors.New("upstream reported failure")
	ErrUnknownSource   = errors.New("unknown signal source")
	ErrUnexpectedPanic = errors.New("normalizer panicked")
)

// SourceID is the stable identifier of one upstream signal.
type SourceID string

const (
	SourceQueue        SourceID = "queue"
	SourceQuota        SourceID = "quota"
	SourceAPILimits    SourceID = "api_limits"
	SourceSystemHealth SourceID = "system_health"
	SourceCursors      SourceID = "cursors"
	SourceCron         SourceID = "cron"
	SourceRecovery     SourceID = "recovery"
)

// AllSources returns every known source in a fixed order.
func AllSources() []SourceID {
	return []SourceID{
		SourceQueue,
		SourceQuota,
		SourceAPILimits,
		SourceSystemHealth,
		SourceCursors,
		SourceCron,
		SourceRecovery,
	}
}

// Valid reports whether id names a known source.
func (id SourceID) Valid() bool {
	for _, s := range AllSources() {
		if s == id {
			return true
		}
	}
	return false
}

// Snapshot is one normalized reading from one source. A snapshot is never
// mutated after it is returned from Source.Fetch.
type Snapshot struct {
	SourceID  SourceID  `json:"sourceId"`
	FetchedAt time.Time `json:"fetchedAt"`
	OK        bool      `json:"ok"`
	// Payload holds the source's normalized value (QueueStats, QuotaUsage, ...).
	// It is nil when OK is false.
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AggregatedState is the set of snapshots produced by one aggregation cycle.
type AggregatedState struct {
	Cycle            uint64                `json:"cycle"`
	CycleStartedAt   time.Time             `json:"cycleStartedAt"`
	CycleCompletedAt time.Time             `json:"cycleCompletedAt"`
	Snapshots        map[SourceID]Snapshot `json:"snapshots"`
}

// Snapshot returns the snapshot for id, if the cycle included that source.
func (s *AggregatedState) Snapshot(id SourceID) (Snapshot, bool) {
	if s == nil || s.Snapshots == nil {
		return Snapshot{}, false
	}
	snap, ok := s.Snapshots[id]
	return snap, ok
}

// Failed returns the ids of sources whose snapshot is not OK, in AllSources order.
func (s *AggregatedState) Failed() []SourceID {
	var failed []SourceID
	if s == nil {
		return failed
	}
	for _, id := range AllSources() {
		if snap, ok := s.Snapshots[id]; ok && !snap.OK {
			failed = append(failed, id)
		}
	}
	return failed
}

// PayloadAs returns the typed payload of source id together with its fetch
// time. ok is false when the source is missing, failed, or carries a payload
// of another type.
func PayloadAs[T any](state *AggregatedState, id SourceID) (payload T, fetchedAt time.Time, ok bool) {
	snap, found := state.Snapshot(id)
	if !found || !snap.OK {
		return payload, fetchedAt, false
	}
	payload, ok = snap.Payload.(T)
	return payload, snap.FetchedAt, ok
}
