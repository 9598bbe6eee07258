package signal_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionwatch/console/internal/signal"
)

func fetchPayload[T any](t *testing.T, src signal.Source) T {
	t.Helper()
	snap := src.Fetch(context.Background())
	require.True(t, snap.OK, snap.Error)
	payload, ok := snap.Payload.(T)
	require.True(t, ok, "payload type %T", snap.Payload)
	return payload
}

func TestQueueSource_FlattensBreakdown(t *testing.T) {
	server := envelopeServer(t, http.StatusOK, `{"success":true,"data":{
		"oldest_pending_at":"2026-03-10T09:00:00Z",
		"by_api_source":{
			"reddit":{"total":20,"failed":12,"completed":8},
			"twitter":{"pending":3,"running":1,"completed":4,"failed":2},
			"youtube":{}
		}}}`)

	stats := fetchPayload[signal.QueueStats](t, signal.NewQueueSource(sourceConfig(server.URL, nil)))

	reddit := stats.BySource["reddit"]
	assert.Equal(t, 20, reddit.Total)
	assert.InDelta(t, 0.6, reddit.FailureRate, 1e-9)

	twitter := stats.BySource["twitter"]
	assert.Equal(t, 10, twitter.Total, "total derived from states")
	assert.InDelta(t, 0.2, twitter.FailureRate, 1e-9)

	youtube := stats.BySource["youtube"]
	assert.Equal(t, 0, youtube.Total)
	assert.Zero(t, youtube.FailureRate, "zero total must not divide")

	assert.Equal(t, 30, stats.Total, "aggregate derived from breakdown")
	assert.Equal(t, 14, stats.Failed)
	require.NotNil(t, stats.OldestPendingAt)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), *stats.OldestPendingAt)
}

func TestQueueSource_MalformedFieldsDefaultToZero(t *testing.T) {
	server := envelopeServer(t, http.StatusOK,
		`{"success":true,"data":{"pending":"lots","failed":null,"completed":-4,"running":"2","oldest_pending_at":"yesterday"}}`)

	stats := fetchPayload[signal.QueueStats](t, signal.NewQueueSource(sourceConfig(server.URL, nil)))

	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 2, stats.Running)
	assert.Equal(t, 2, stats.Total)
	assert.Nil(t, stats.OldestPendingAt)
	assert.NotNil(t, stats.BySource)
}

func TestQueueSource_OutOfRangeCountersDefaultToZero(t *testing.T) {
	server := envelopeServer(t, http.StatusOK, `{"success":true,"data":{
		"total":20,"failed":1e19,
		"by_api_source":{"reddit":{"total":20,"failed":1e19,"completed":5}}}}`)

	stats := fetchPayload[signal.QueueStats](t, signal.NewQueueSource(sourceConfig(server.URL, nil)))

	assert.Equal(t, 20, stats.Total)
	assert.Equal(t, 0, stats.Failed)
	reddit := stats.BySource["reddit"]
	assert.Equal(t, 0, reddit.Failed)
	assert.Equal(t, 5, reddit.Completed)
	assert.GreaterOrEqual(t, reddit.FailureRate, 0.0)
	assert.Zero(t, reddit.FailureRate)
}

func TestQuotaSource_Utilization(t *testing.T) {
	server := envelopeServer(t, http.StatusOK, `{"success":true,"data":{"entries":[
		{"user_id":"u2","source_type":"Reddit","used":95,"limit":100},
		{"user_id":"u1","source_type":"youtube","used":10,"limit":0},
		{"user_id":"u1","source_type":"news","used":1,"limit":2,"percentage":91.5},
		{"user_id":"","source_type":"news","used":1,"limit":2}
	]}}`)

	usage := fetchPayload[signal.QuotaUsage](t, signal.NewQuotaSource(sourceConfig(server.URL, nil)))

	require.Len(t, usage.Entries, 3)
	assert.Equal(t, "u1", usage.Entries[0].UserID)
	assert.Equal(t, "news", usage.Entries[0].SourceType)
	assert.InDelta(t, 91.5, usage.Entries[0].Utilization, 1e-9, "upstream percentage wins")
	assert.Equal(t, "youtube", usage.Entries[1].SourceType)
	assert.Zero(t, usage.Entries[1].Utilization, "no limit means no utilization")
	assert.Equal(t, "reddit", usage.Entries[2].SourceType)
	assert.InDelta(t, 95.0, usage.Entries[2].Utilization, 1e-9)
}

func TestAPILimitsSource_MissingUsageIsUnavailable(t *testing.T) {
	server := envelopeServer(t, http.StatusOK, `{"success":true,"data":{"services":[
		{"service":"youtube","available":false},
		{"service":"reddit","available":true,"usage_percent":85.5,"reset_at":"2026-03-10T13:00:00Z"},
		{"service":"news"}
	]}}`)

	limits := fetchPayload[signal.APILimits](t, signal.NewAPILimitsSource(sourceConfig(server.URL, nil)))

	require.Len(t, limits.Services, 3)
	news, reddit, youtube := limits.Services[0], limits.Services[1], limits.Services[2]

	assert.True(t, news.Available, "absent flag is not an outage")
	assert.Nil(t, news.UsagePercent)

	require.NotNil(t, reddit.UsagePercent)
	assert.InDelta(t, 85.5, *reddit.UsagePercent, 1e-9)
	assert.NotNil(t, reddit.ResetAt)

	assert.False(t, youtube.Available)
	assert.Nil(t, youtube.UsagePercent)
}

func TestSystemHealthSource(t *testing.T) {
	server := envelopeServer(t, http.StatusOK, `{"success":true,"data":{
		"subsystems":{"Database":{"status":" Healthy "},"queue":{"status":"no_recent_activity","detail":"idle"}},
		"automated_fetch":{"last_run_at":"2026-03-10T11:40:00Z","frequency_minutes":15}}}`)

	health := fetchPayload[signal.SystemHealth](t, signal.NewSystemHealthSource(sourceConfig(server.URL, nil)))

	assert.Equal(t, "healthy", health.Subsystems["database"].Status)
	assert.Equal(t, "no_recent_activity", health.Subsystems["queue"].Status)
	assert.Equal(t, "idle", health.Subsystems["queue"].Detail)
	assert.Equal(t, 15, health.AutomatedFetch.FrequencyMinutes)
	require.NotNil(t, health.AutomatedFetch.LastRunAt)
}

func TestCursorSource_ClassifiesStates(t *testing.T) {
	server := envelopeServer(t, http.StatusOK, `{"success":true,"data":{
		"cursors":[
			{"id":"c1","status":"error","last_fetched_at":"2026-03-10T11:59:00Z","error":"token revoked"},
			{"id":"c2","status":"active","last_fetched_at":"2026-03-10T09:00:00Z"},
			{"id":"c3","status":"active","last_fetched_at":"2026-03-10T11:30:00Z"},
			{"id":"c4","status":"active"}
		],
		"issues":[{"type":"Gap_Detected","severity":"HIGH","message":"gap","cursor_id":"c2"},{"severity":"low"}]}}`)

	status := fetchPayload[signal.CursorStatus](t, signal.NewCursorSource(sourceConfig(server.URL, nil), 2*time.Hour))

	require.Len(t, status.Cursors, 4)
	assert.Equal(t, signal.CursorError, status.Cursors[0].State)
	assert.Equal(t, signal.CursorStale, status.Cursors[1].State)
	assert.Equal(t, signal.CursorActive, status.Cursors[2].State)
	assert.Equal(t, signal.CursorStale, status.Cursors[3].State, "never fetched")
	assert.Equal(t, 1, status.Errored)
	assert.Equal(t, 2, status.Stale)
	assert.Equal(t, 1, status.Active)
	assert.Equal(t, 4, status.Total())

	require.Len(t, status.Issues, 1, "issue without type is dropped")
	assert.Equal(t, "gap_detected", status.Issues[0].Type)
	assert.Equal(t, "high", status.Issues[0].Severity)
}

func TestCronSource_ComputesNextRunAndOverdue(t *testing.T) {
	server := envelopeServer(t, http.StatusOK, `{"success":true,"data":{"jobs":[
		{"name":"fetch-mentions","schedule":"*/15 * * * *","enabled":true,"last_run_at":"2026-03-10T11:00:00Z","last_status":"success"},
		{"name":"digest","schedule":"0 12 * * *","enabled":true,"last_run_at":"2026-03-09T12:00:00Z","last_status":"FAILURE","last_error":"smtp"},
		{"name":"cleanup","schedule":"*/5 * * * *","enabled":false,"last_run_at":"2026-03-10T08:00:00Z"},
		{"name":"broken","schedule":"every now and then","enabled":true,"last_run_at":"2026-03-01T00:00:00Z"}
	]}}`)

	history := fetchPayload[signal.CronHistory](t, signal.NewCronSource(sourceConfig(server.URL, nil), 10*time.Minute))

	require.Len(t, history.Jobs, 4)
	jobs := make(map[string]signal.CronJob)
	for _, j := range history.Jobs {
		jobs[j.Name] = j
	}

	fetch := jobs["fetch-mentions"]
	require.NotNil(t, fetch.NextExpectedAt)
	assert.Equal(t, time.Date(2026, 3, 10, 11, 15, 0, 0, time.UTC), *fetch.NextExpectedAt)
	assert.True(t, fetch.Overdue)

	digest := jobs["digest"]
	assert.True(t, digest.Failed())
	assert.False(t, digest.Overdue, "next run is exactly now, within grace")

	assert.False(t, jobs["cleanup"].Overdue, "disabled jobs are never overdue")
	assert.Nil(t, jobs["broken"].NextExpectedAt)
	assert.False(t, jobs["broken"].Overdue)

	assert.Equal(t, "broken", history.Jobs[0].Name, "jobs sorted by name")
}
