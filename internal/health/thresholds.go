package health

import "time"

// Thresholds is the fixed policy table every classifier and alert rule reads.
type Thresholds struct {
	// UtilizationCriticalPct is the inclusive lower bound of the critical band.
	UtilizationCriticalPct float64 `yaml:"utilization_critical_pct"`

	// UtilizationWarningPct is the inclusive lower bound of the warning band.
	UtilizationWarningPct float64 `yaml:"utilization_warning_pct"`

	// UsageElevatedPct is the exclusive lower bound for elevated service usage.
	UsageElevatedPct float64 `yaml:"usage_elevated_pct"`

	// RecencyBufferMinutes is the grace added to the expected frequency.
	RecencyBufferMinutes int `yaml:"recency_buffer_minutes"`

	// SourceFailureRatio is the per-source failed/total ratio above which a
	// source is flagged.
	SourceFailureRatio float64 `yaml:"source_failure_ratio"`

	// QueueStaleAge is the age beyond which a pending queue entry is stale.
	QueueStaleAge time.Duration `yaml:"queue_stale_age"`

	// QueueFailedCeiling is the absolute failed-entry count above which the
	// queue is critical.
	QueueFailedCeiling int `yaml:"queue_failed_ceiling"`

	// CursorStaleAge is the age beyond which a cursor is stale.
	CursorStaleAge time.Duration `yaml:"cursor_stale_age"`

	// CursorErrorRatio is the errored/total cursor ratio above which cursor
	// health is critical.
	CursorErrorRatio float64 `yaml:"cursor_error_ratio"`

	// StaleCursorCeiling is the stale-cursor count above which cursor health
	// is degraded.
	StaleCursorCeiling int `yaml:"stale_cursor_ceiling"`

	// CronOverdueGrace is how long past its expected run a cron job may be
	// before it counts as overdue.
	CronOverdueGrace time.Duration `yaml:"cron_overdue_grace"`
}

// DefaultThresholds returns the product policy observed in the console.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UtilizationCriticalPct: 90,
		UtilizationWarningPct:  75,
		UsageElevatedPct:       80,
		RecencyBufferMinutes:   5,
		SourceFailureRatio:     0.5,
		QueueStaleAge:          2 * time.Hour,
		QueueFailedCeiling:     10,
		CursorStaleAge:         2 * time.Hour,
		CursorErrorRatio:       0.3,
		StaleCursorCeiling:     10,
		CronOverdueGrace:       10 * time.Minute,
	}
}
