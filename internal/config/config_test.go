package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionwatch/console/internal/config"
	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/signal"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("AUTOMATION_STORE", "")

	cfg := config.FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.OTelEnabled)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, config.StorePostgres, cfg.AutomationStore)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("UPSTREAM_BASE_URL", "https://mentions.example.com/api")
	t.Setenv("PUBSUB_PROJECT_ID", "mentionwatch")
	t.Setenv("AUTOMATION_STORE", "Memory")

	cfg := config.FromEnv()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "https://mentions.example.com/api", cfg.UpstreamBaseURL)
	assert.True(t, cfg.PubSubEnabled())
	assert.Equal(t, config.StoreMemory, cfg.AutomationStore)
}

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	policy, err := config.LoadPolicy("")
	require.NoError(t, err)

	assert.Equal(t, health.DefaultThresholds(), policy.Thresholds)
	require.NotEmpty(t, policy.Dashboards)
	assert.Equal(t, "operations", policy.Dashboards[0].ID)
	assert.Equal(t, signal.AllSources(), policy.Dashboards[0].SourceIDs())
	assert.NoError(t, policy.Validate())
}

func TestLoadPolicy_MissingKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
thresholds:
  utilization_warning_pct: 70
  cursor_stale_age: 3h
upstream:
  timeout: 5s
  max_retries: 0
  paths:
    queue: /v2/queue
dashboards:
  - id: queue-only
    title: Queue
    interval: 15s
    sources: [queue, recovery]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	policy, err := config.LoadPolicy(path)
	require.NoError(t, err)

	assert.InDelta(t, 70, policy.Thresholds.UtilizationWarningPct, 0.001)
	assert.InDelta(t, 90, policy.Thresholds.UtilizationCriticalPct, 0.001)
	assert.Equal(t, 3*time.Hour, policy.Thresholds.CursorStaleAge)
	assert.Equal(t, 10*time.Minute, policy.Thresholds.CronOverdueGrace)

	assert.Equal(t, 5*time.Second, policy.Upstream.Timeout)
	assert.Equal(t, uint64(0), policy.Upstream.MaxRetries)
	assert.Equal(t, 2*time.Second, policy.Upstream.MaxInterval)
	assert.Equal(t, "/v2/queue", policy.Upstream.SourcePaths()[signal.SourceQueue])

	require.Len(t, policy.Dashboards, 1)
	d := policy.Dashboards[0]
	assert.Equal(t, 15*time.Second, d.Interval)
	assert.Equal(t, []signal.SourceID{signal.SourceQueue, signal.SourceRecovery}, d.SourceIDs())
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := config.LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "thresholds: [1, 2"},
		{"warning above critical", "thresholds: {utilization_warning_pct: 95}"},
		{"ratio out of range", "thresholds: {cursor_error_ratio: 1.5}"},
		{"negative ceiling", "thresholds: {queue_failed_ceiling: -1}"},
		{"zero stale age", "thresholds: {queue_stale_age: 0s}"},
		{"unknown path source", "upstream: {paths: {mentions: /x}}"},
		{"no dashboards", "dashboards: []"},
		{"unknown dashboard source", "dashboards: [{id: a, interval: 1s, sources: [mentions]}]"},
		{"zero interval", "dashboards: [{id: a, interval: 0s, sources: [queue]}]"},
		{"duplicate dashboard", "dashboards: [{id: a, interval: 1s, sources: [queue]}, {id: a, interval: 1s, sources: [cron]}]"},
		{"missing id", "dashboards: [{interval: 1s, sources: [queue]}]"},
		{"duplicate dashboard source", "dashboards: [{id: a, interval: 1s, sources: [queue, cron, queue]}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParsePolicy([]byte(tt.yaml))
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestUpstreamPolicy_Transport(t *testing.T) {
	u := config.DefaultPolicy().Upstream
	u.BreakerTimeout = time.Minute

	transport := u.Transport()

	assert.Equal(t, 10*time.Second, transport.Timeout)
	assert.Equal(t, uint64(2), transport.MaxRetries)
	require.NotNil(t, transport.CircuitBreaker)
	assert.Equal(t, time.Minute, transport.CircuitBreaker.Timeout)
}
