package alert_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionwatch/console/internal/alert"
	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/signal"
)

var cycleTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func stateOf(snaps ...signal.Snapshot) *signal.AggregatedState {
	state := &signal.AggregatedState{
		CycleStartedAt:   cycleTime,
		CycleCompletedAt: cycleTime,
		Snapshots:        make(map[signal.SourceID]signal.Snapshot),
	}
	for _, s := range snaps {
		state.Snapshots[s.SourceID] = s
	}
	return state
}

func ok(id signal.SourceID, payload any) signal.Snapshot {
	return signal.Snapshot{SourceID: id, FetchedAt: cycleTime, OK: true, Payload: payload}
}

func ids(alerts []alert.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ID)
	}
	return out
}

func usage(v float64) *float64 { return &v }

func fullState() *signal.AggregatedState {
	threeHoursAgo := cycleTime.Add(-3 * time.Hour)
	nextRun := cycleTime.Add(-time.Hour)
	return stateOf(
		ok(signal.SourceAPILimits, signal.APILimits{Services: []signal.ServiceLimit{
			{Service: "youtube", Available: false},
			{Service: "reddit", Available: true, UsagePercent: usage(85)},
			{Service: "news", Available: true, UsagePercent: usage(97)},
		}}),
		ok(signal.SourceQuota, signal.QuotaUsage{Entries: []signal.QuotaEntry{
			{UserID: "U", SourceType: "S", Used: 95, Limit: 100, Utilization: 95},
			{UserID: "A", SourceType: "reddit", Used: 10, Limit: 100, Utilization: 10},
		}}),
		ok(signal.SourceSystemHealth, signal.SystemHealth{Subsystems: map[string]signal.SubsystemStatus{
			"database": {Status: "healthy"},
			"queue":    {Status: "empty"},
		}}),
		ok(signal.SourceQueue, signal.QueueStats{
			Failed:          12,
			OldestPendingAt: &threeHoursAgo,
			BySource:        map[string]signal.SourceCounts{"reddit": {Total: 20, Failed: 12}},
		}),
		ok(signal.SourceCursors, signal.CursorStatus{
			Issues: []signal.CursorIssue{{Type: "gap", Severity: "high", CursorID: "c1"}},
		}),
		ok(signal.SourceCron, signal.CronHistory{Jobs: []signal.CronJob{
			{Name: "digest", LastStatus: signal.CronStatusFailed, Enabled: true, Overdue: true, NextExpectedAt: &nextRun},
		}}),
		ok(signal.SourceRecovery, signal.RecoveryStatus{Failed: 2}),
	)
}

func TestSynthesize_RuleOrder(t *testing.T) {
	alerts := alert.Synthesize(fullState(), health.DefaultThresholds())

	assert.Equal(t, []string{
		"api-youtube-unavailable",
		"quota-U-S",
		"api-news-usage-critical",
		"api-reddit-elevated-usage",
		"system-queue-unhealthy",
		"queue-high-failures",
		"queue-stale-entries",
		"queue-reddit-high-failure-rate",
		"cursor-issue-gap-c1",
		"cron-digest-failed",
		"cron-digest-overdue",
		"recovery-failures",
	}, ids(alerts))
}

func TestSynthesize_Idempotent(t *testing.T) {
	state := fullState()
	th := health.DefaultThresholds()

	first := alert.Synthesize(state, th)
	second := alert.Synthesize(state, th)

	assert.Equal(t, first, second)
}

func TestSynthesize_QueueScenario(t *testing.T) {
	threeHoursAgo := cycleTime.Add(-3 * time.Hour)
	state := stateOf(ok(signal.SourceQueue, signal.QueueStats{
		Total:           20,
		Failed:          12,
		OldestPendingAt: &threeHoursAgo,
		BySource:        map[string]signal.SourceCounts{"reddit": {Total: 20, Failed: 12, FailureRate: 0.6}},
	}))

	alerts := alert.Synthesize(state, health.DefaultThresholds())

	require.Len(t, alerts, 3)
	assert.Equal(t, "queue-high-failures", alerts[0].ID)
	assert.Equal(t, alert.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, "queue-stale-entries", alerts[1].ID)
	assert.Equal(t, alert.SeverityMedium, alerts[1].Severity)
	assert.Equal(t, "queue-reddit-high-failure-rate", alerts[2].ID)
	assert.Equal(t, alert.SeverityMedium, alerts[2].Severity)
	assert.Equal(t, "reddit", alerts[2].Service)
	for _, a := range alerts {
		assert.Equal(t, cycleTime, a.CreatedAt)
	}
}

func TestSynthesize_QuotaIDStableAcrossCycles(t *testing.T) {
	th := health.DefaultThresholds()
	entry := signal.QuotaEntry{UserID: "U", SourceType: "S", Used: 95, Limit: 100, Utilization: 95}

	first := alert.Synthesize(stateOf(ok(signal.SourceQuota, signal.QuotaUsage{Entries: []signal.QuotaEntry{entry}})), th)

	entry.Used, entry.Utilization = 96, 96
	later := signal.Snapshot{
		SourceID:  signal.SourceQuota,
		FetchedAt: cycleTime.Add(time.Minute),
		OK:        true,
		Payload:   signal.QuotaUsage{Entries: []signal.QuotaEntry{entry}},
	}
	second := alert.Synthesize(stateOf(later), th)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "quota-U-S", first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].Message, second[0].Message)
}

func TestSynthesize_FailedSourceOnlyRemovesItsOwnAlerts(t *testing.T) {
	th := health.DefaultThresholds()
	state := fullState()
	state.Snapshots[signal.SourceQueue] = signal.Snapshot{
		SourceID:  signal.SourceQueue,
		FetchedAt: cycleTime,
		OK:        false,
		Error:     "connection refused",
	}

	alerts := alert.Synthesize(state, th)

	got := ids(alerts)
	assert.NotContains(t, got, "queue-high-failures")
	assert.NotContains(t, got, "queue-stale-entries")
	assert.Contains(t, got, "api-youtube-unavailable")
	assert.Contains(t, got, "quota-U-S")
	assert.Contains(t, got, "recovery-failures")
	assert.Len(t, alerts, 9)
}

func TestSynthesize_ClearedConditionDisappears(t *testing.T) {
	th := health.DefaultThresholds()
	failing := stateOf(ok(signal.SourceRecovery, signal.RecoveryStatus{Failed: 1}))
	cleared := stateOf(ok(signal.SourceRecovery, signal.RecoveryStatus{Failed: 0}))

	assert.Len(t, alert.Synthesize(failing, th), 1)
	assert.Empty(t, alert.Synthesize(cleared, th))
	assert.NotNil(t, alert.Synthesize(cleared, th))
	assert.Empty(t, alert.Synthesize(nil, th))
}

func TestElevatedUsageBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		usage    *float64
		expected []string
	}{
		{"no reading", nil, []string{}},
		{"at elevated bound", usage(80), []string{}},
		{"just above elevated", usage(80.5), []string{"api-x-elevated-usage"}},
		{"at critical bound", usage(90), []string{"api-x-elevated-usage"}},
		{"above critical", usage(90.1), []string{"api-x-usage-critical"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateOf(ok(signal.SourceAPILimits, signal.APILimits{Services: []signal.ServiceLimit{
				{Service: "x", Available: true, UsagePercent: tt.usage},
			}}))
			assert.Equal(t, tt.expected, ids(alert.Synthesize(state, health.DefaultThresholds())))
		})
	}
}

func TestSubsystemSeverity(t *testing.T) {
	state := stateOf(ok(signal.SourceSystemHealth, signal.SystemHealth{Subsystems: map[string]signal.SubsystemStatus{
		"api":             {Status: "error"},
		"automated_fetch": {Status: "no_recent_activity"},
		"database":        {Status: "inactive"},
		"queue":           {Status: "empty"},
		"search":          {Status: "rebooting"},
		"storage":         {Status: "ok"},
	}}))

	alerts := alert.Synthesize(state, health.DefaultThresholds())

	require.Len(t, alerts, 4)
	expected := map[string]alert.Severity{
		"system-api-unhealthy":             alert.SeverityHigh,
		"system-automated_fetch-unhealthy": alert.SeverityMedium,
		"system-database-unhealthy":        alert.SeverityHigh,
		"system-queue-unhealthy":           alert.SeverityLow,
	}
	for _, a := range alerts {
		assert.Equal(t, expected[a.ID], a.Severity, a.ID)
	}
}

func TestCursorHealth(t *testing.T) {
	cursors := make([]signal.Cursor, 20)
	state := stateOf(ok(signal.SourceCursors, signal.CursorStatus{
		Cursors: cursors,
		Errored: 7,
		Stale:   11,
		Issues: []signal.CursorIssue{
			{Type: "gap", Severity: "critical", CursorID: "c1", SourceType: "reddit"},
			{Type: "gap", Severity: "low", CursorID: "c1"},
			{Type: "duplicate", Severity: "warning"},
		},
	}))

	alerts := alert.Synthesize(state, health.DefaultThresholds())

	assert.Equal(t, []string{
		"cursor-issue-gap-c1",
		"cursor-issue-gap-c1-2",
		"cursor-issue-duplicate",
		"cursor-high-error-rate",
		"cursor-stale-count",
	}, ids(alerts))
	assert.Equal(t, alert.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, "reddit", alerts[0].Service)
	assert.Equal(t, alert.SeverityLow, alerts[1].Severity)
	assert.Equal(t, alert.SeverityMedium, alerts[2].Severity)
	assert.Equal(t, alert.SeverityHigh, alerts[3].Severity)
	assert.Equal(t, alert.SeverityMedium, alerts[4].Severity)
}

func TestCursorHealth_ErrorRatioIsStrict(t *testing.T) {
	state := stateOf(ok(signal.SourceCursors, signal.CursorStatus{
		Cursors: make([]signal.Cursor, 10),
		Errored: 3,
		Stale:   10,
	}))
	assert.Empty(t, alert.Synthesize(state, health.DefaultThresholds()))
}

func TestRun_FirstRuleWinsOnDuplicateID(t *testing.T) {
	emit := func(sev alert.Severity) alert.Rule {
		return alert.Rule{Name: string(sev), Evaluate: func(*signal.AggregatedState, health.Thresholds) []alert.Alert {
			return []alert.Alert{{ID: "same", Severity: sev}}
		}}
	}

	alerts := alert.Run([]alert.Rule{emit(alert.SeverityHigh), emit(alert.SeverityLow)}, nil, health.DefaultThresholds())

	require.Len(t, alerts, 1)
	assert.Equal(t, alert.SeverityHigh, alerts[0].Severity)
}

func TestCounts(t *testing.T) {
	counts := alert.Counts(alert.Synthesize(fullState(), health.DefaultThresholds()))

	assert.Equal(t, 5, counts[alert.SeverityHigh])
	assert.Equal(t, 6, counts[alert.SeverityMedium])
	assert.Equal(t, 1, counts[alert.SeverityLow])
}

func TestSubsystemSeverity_NormalizesStatus(t *testing.T) {
	state := stateOf(ok(signal.SourceSystemHealth, signal.SystemHealth{Subsystems: map[string]signal.SubsystemStatus{
		"api":      {Status: " Error "},
		"database": {Status: "DEGRADED"},
		"queue":    {Status: "Empty"},
		"storage":  {Status: " OK"},
	}}))

	alerts := alert.Synthesize(state, health.DefaultThresholds())

	require.Equal(t, []string{"system-api-unhealthy", "system-database-unhealthy", "system-queue-unhealthy"}, ids(alerts))
	assert.Equal(t, alert.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, alert.SeverityMedium, alerts[1].Severity)
	assert.Equal(t, alert.SeverityLow, alerts[2].Severity)
}

func TestAutomatedFetchRecency(t *testing.T) {
	minutesAgo := func(m int) *time.Time {
		at := cycleTime.Add(-time.Duration(m) * time.Minute)
		return &at
	}

	tests := []struct {
		name     string
		system   signal.SystemHealth
		expected []string
		severity alert.Severity
	}{
		{
			name: "three hours late is high",
			system: signal.SystemHealth{
				Subsystems:     map[string]signal.SubsystemStatus{"database": {Status: "healthy"}},
				AutomatedFetch: signal.AutomatedFetch{LastRunAt: minutesAgo(180), FrequencyMinutes: 15},
			},
			expected: []string{"system-automated_fetch-unhealthy"},
			severity: alert.SeverityHigh,
		},
		{
			name: "within twice the frequency is medium",
			system: signal.SystemHealth{
				AutomatedFetch: signal.AutomatedFetch{LastRunAt: minutesAgo(25), FrequencyMinutes: 15},
			},
			expected: []string{"system-automated_fetch-unhealthy"},
			severity: alert.SeverityMedium,
		},
		{
			name: "within the buffer does not fire",
			system: signal.SystemHealth{
				AutomatedFetch: signal.AutomatedFetch{LastRunAt: minutesAgo(18), FrequencyMinutes: 15},
			},
			expected: []string{},
		},
		{
			name: "never run is unknown",
			system: signal.SystemHealth{
				AutomatedFetch: signal.AutomatedFetch{FrequencyMinutes: 15},
			},
			expected: []string{},
		},
		{
			name: "reported subsystem wins over recency",
			system: signal.SystemHealth{
				Subsystems:     map[string]signal.SubsystemStatus{"automated_fetch": {Status: "healthy"}},
				AutomatedFetch: signal.AutomatedFetch{LastRunAt: minutesAgo(180), FrequencyMinutes: 15},
			},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateOf(ok(signal.SourceSystemHealth, tt.system))
			th := health.DefaultThresholds()

			alerts := alert.Synthesize(state, th)

			assert.Equal(t, tt.expected, ids(alerts))
			if len(alerts) == 1 {
				assert.Equal(t, tt.severity, alerts[0].Severity)
				report := health.Evaluate(state, th)
				assert.NotEqual(t, health.TierHealthy, report.Dimensions[health.DimensionAutomatedFetch])
			}
		})
	}
}
