package health

import (
	"time"

	"github.com/mentionwatch/console/internal/signal"
)

// Dimension names one badge on a dashboard.
type Dimension string

const (
	DimensionQueue          Dimension = "queue"
	DimensionQuota          Dimension = "quota"
	DimensionAPILimits      Dimension = "api_limits"
	DimensionSystem         Dimension = "system"
	DimensionCursors        Dimension = "cursors"
	DimensionCron           Dimension = "cron"
	DimensionRecovery       Dimension = "recovery"
	DimensionAutomatedFetch Dimension = "automated_fetch"
)

// Report is the tier of every dimension for one aggregated state.
type Report struct {
	Dimensions map[Dimension]Tier `json:"dimensions"`
	Overall    Tier               `json:"overall"`
}

// Evaluate classifies every dimension of state. A dimension whose snapshot is
// missing or failed is unknown. Overall is the worst known tier.
func Evaluate(state *signal.AggregatedState, t Thresholds) Report {
	dims := map[Dimension]Tier{
		DimensionQueue:          TierUnknown,
		DimensionQuota:          TierUnknown,
		DimensionAPILimits:      TierUnknown,
		DimensionSystem:         TierUnknown,
		DimensionCursors:        TierUnknown,
		DimensionCron:           TierUnknown,
		DimensionRecovery:       TierUnknown,
		DimensionAutomatedFetch: TierUnknown,
	}

	if q, at, ok := signal.PayloadAs[signal.QueueStats](state, signal.SourceQueue); ok {
		dims[DimensionQueue] = QueueTier(q, at, t)
	}
	if q, _, ok := signal.PayloadAs[signal.QuotaUsage](state, signal.SourceQuota); ok {
		dims[DimensionQuota] = QuotaTier(q, t)
	}
	if l, _, ok := signal.PayloadAs[signal.APILimits](state, signal.SourceAPILimits); ok {
		dims[DimensionAPILimits] = APILimitsTier(l, t)
	}
	if s, at, ok := signal.PayloadAs[signal.SystemHealth](state, signal.SourceSystemHealth); ok {
		dims[DimensionSystem] = SystemTier(s)
		dims[DimensionAutomatedFetch] = AutomatedFetchTier(s.AutomatedFetch, at, t)
	}
	if c, _, ok := signal.PayloadAs[signal.CursorStatus](state, signal.SourceCursors); ok {
		dims[DimensionCursors] = CursorTier(c, t)
	}
	if c, _, ok := signal.PayloadAs[signal.CronHistory](state, signal.SourceCron); ok {
		dims[DimensionCron] = CronTier(c)
	}
	if r, _, ok := signal.PayloadAs[signal.RecoveryStatus](state, signal.SourceRecovery); ok {
		dims[DimensionRecovery] = RecoveryTier(r)
	}

	all := make([]Tier, 0, len(dims))
	for _, tier := range dims {
		all = append(all, tier)
	}

	return Report{Dimensions: dims, Overall: Worst(all...)}
}

// QueueTier is critical above the failed ceiling and warning for a stale
// oldest entry or any source over the failure ratio.
func QueueTier(q signal.QueueStats, now time.Time, t Thresholds) Tier {
	tiers := []Tier{TierHealthy}
	if q.Failed > t.QueueFailedCeiling {
		tiers = append(tiers, TierCritical)
	}
	if q.OldestPendingAt != nil {
		tiers = append(tiers, ClassifyAge(now.Sub(*q.OldestPendingAt), t.QueueStaleAge))
	}
	for _, counts := range q.BySource {
		tiers = append(tiers, ClassifyFailureRate(counts.Failed, counts.Total, t.SourceFailureRatio))
	}
	return Worst(tiers...)
}

// QuotaTier is the worst utilization across all user quotas.
func QuotaTier(q signal.QuotaUsage, t Thresholds) Tier {
	tiers := []Tier{TierHealthy}
	for _, e := range q.Entries {
		tiers = append(tiers, ClassifyUtilization(e.Utilization, t))
	}
	return Worst(tiers...)
}

// APILimitsTier is critical when any service is unavailable, otherwise the
// worst usage tier among services that report usage.
func APILimitsTier(l signal.APILimits, t Thresholds) Tier {
	tiers := []Tier{TierHealthy}
	for _, s := range l.Services {
		if !s.Available {
			tiers = append(tiers, TierCritical)
			continue
		}
		if s.UsagePercent != nil {
			tiers = append(tiers, ClassifyUtilization(*s.UsagePercent, t))
		}
	}
	return Worst(tiers...)
}

// SystemTier is the worst subsystem tier. Unrecognized statuses do not count.
func SystemTier(s signal.SystemHealth) Tier {
	tiers := []Tier{TierHealthy}
	for _, sub := range s.Subsystems {
		tiers = append(tiers, ClassifySubsystem(sub.Status))
	}
	return Worst(tiers...)
}

// AutomatedFetchTier grades the recency of the backend's automated fetch loop.
func AutomatedFetchTier(a signal.AutomatedFetch, now time.Time, t Thresholds) Tier {
	if a.LastRunAt == nil || a.FrequencyMinutes <= 0 {
		return TierUnknown
	}
	return ClassifyRecency(ElapsedMinutes(*a.LastRunAt, now), a.FrequencyMinutes, t.RecencyBufferMinutes)
}

// CursorTier is critical above the error ratio and warning above the stale
// ceiling or when the upstream reports issues.
func CursorTier(c signal.CursorStatus, t Thresholds) Tier {
	tiers := []Tier{TierHealthy}
	if FailureRate(c.Errored, c.Total()) > t.CursorErrorRatio {
		tiers = append(tiers, TierCritical)
	}
	if c.Stale > t.StaleCursorCeiling || len(c.Issues) > 0 {
		tiers = append(tiers, TierWarning)
	}
	return Worst(tiers...)
}

// CronTier is warning when any job failed its last run or is overdue.
func CronTier(c signal.CronHistory) Tier {
	for _, j := range c.Jobs {
		if j.Failed() || j.Overdue {
			return TierWarning
		}
	}
	return TierHealthy
}

// RecoveryTier is warning when any recovery failed.
func RecoveryTier(r signal.RecoveryStatus) Tier {
	if r.Failed > 0 {
		return TierWarning
	}
	return TierHealthy
}
