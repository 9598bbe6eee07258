package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/provider/resilience"
	"github.com/mentionwatch/console/internal/signal"
)

// Policy is the product policy: thresholds, upstream endpoints and the
// dashboards to run.
type Policy struct {
	Thresholds health.Thresholds `yaml:"thresholds"`
	Upstream   UpstreamPolicy    `yaml:"upstream"`
	Dashboards []DashboardPolicy `yaml:"dashboards"`
}

// UpstreamPolicy configures how signal endpoints are reached.
type UpstreamPolicy struct {
	// Paths overrides the endpoint path per source id.
	Paths map[string]string `yaml:"paths"`

	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// DashboardPolicy declares one dashboard and the sources it polls.
type DashboardPolicy struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Interval time.Duration `yaml:"interval"`
	Sources  []string      `yaml:"sources"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds: health.DefaultThresholds(),
		Upstream: UpstreamPolicy{
			Timeout:         10 * time.Second,
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			BreakerTimeout:  30 * time.Second,
		},
		Dashboards: []DashboardPolicy{
			{
				ID:       "operations",
				Title:    "Operations",
				Interval: 30 * time.Second,
				Sources: []string{
					string(signal.SourceQueue),
					string(signal.SourceQuota),
					string(signal.SourceAPILimits),
					string(signal.SourceSystemHealth),
					string(signal.SourceCursors),
					string(signal.SourceCron),
					string(signal.SourceRecovery),
				},
			},
			{
				ID:       "api-health",
				Title:    "API Health",
				Interval: time.Minute,
				Sources: []string{
					string(signal.SourceAPILimits),
					string(signal.SourceQuota),
					string(signal.SourceSystemHealth),
				},
			},
			{
				ID:       "cursors",
				Title:    "Cursor Continuity",
				Interval: time.Minute,
				Sources: []string{
					string(signal.SourceCursors),
					string(signal.SourceRecovery),
					string(signal.SourceCron),
				},
			},
		},
	}
}

// LoadPolicy reads the policy file at path. An empty path yields
// DefaultPolicy. Keys missing from the file keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy over the defaults and validates it.
func ParsePolicy(data []byte) (Policy, error) {
	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("%w: decoding policy: %v", ErrInvalidConfig, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate rejects inconsistent policies with ErrInvalidConfig.
func (p Policy) Validate() error {
	t := p.Thresholds
	switch {
	case !validPct(t.UtilizationWarningPct) || !validPct(t.UtilizationCriticalPct):
		return invalid("utilization thresholds must be within (0, 100]")
	case t.UtilizationWarningPct >= t.UtilizationCriticalPct:
		return invalid("utilization_warning_pct must be below utilization_critical_pct")
	case !validPct(t.UsageElevatedPct) || t.UsageElevatedPct > t.UtilizationCriticalPct:
		return invalid("usage_elevated_pct must be within (0, utilization_critical_pct]")
	case !validRatio(t.SourceFailureRatio) || !validRatio(t.CursorErrorRatio):
		return invalid("ratios must be within [0, 1]")
	case t.RecencyBufferMinutes < 0:
		return invalid("recency_buffer_minutes must not be negative")
	case t.QueueFailedCeiling < 0 || t.StaleCursorCeiling < 0:
		return invalid("ceilings must not be negative")
	case t.QueueStaleAge <= 0 || t.CursorStaleAge <= 0 || t.CronOverdueGrace <= 0:
		return invalid("ages must be positive")
	}

	for id := range p.Upstream.Paths {
		if !signal.SourceID(id).Valid() {
			return invalid(fmt.Sprintf("unknown source %q in upstream.paths", id))
		}
	}
	if p.Upstream.Timeout <= 0 {
		return invalid("upstream.timeout must be positive")
	}

	if len(p.Dashboards) == 0 {
		return invalid("at least one dashboard is required")
	}
	seen := make(map[string]bool, len(p.Dashboards))
	for _, d := range p.Dashboards {
		if d.ID == "" {
			return invalid("dashboard id is required")
		}
		if seen[d.ID] {
			return invalid(fmt.Sprintf("duplicate dashboard %q", d.ID))
		}
		seen[d.ID] = true
		if d.Interval <= 0 {
			return invalid(fmt.Sprintf("dashboard %q: interval must be positive", d.ID))
		}
		if len(d.Sources) == 0 {
			return invalid(fmt.Sprintf("dashboard %q: no sources", d.ID))
		}
		listed := make(map[string]bool, len(d.Sources))
		for _, s := range d.Sources {
			if !signal.SourceID(s).Valid() {
				return invalid(fmt.Sprintf("dashboard %q: unknown source %q", d.ID, s))
			}
			if listed[s] {
				return invalid(fmt.Sprintf("dashboard %q: source %q listed twice", d.ID, s))
			}
			listed[s] = true
		}
	}
	return nil
}

// SourceIDs returns the dashboard's sources as ids.
func (d DashboardPolicy) SourceIDs() []signal.SourceID {
	ids := make([]signal.SourceID, 0, len(d.Sources))
	for _, s := range d.Sources {
		ids = append(ids, signal.SourceID(s))
	}
	return ids
}

// SourcePaths returns the configured path overrides keyed by source id.
func (u UpstreamPolicy) SourcePaths() map[signal.SourceID]string {
	paths := make(map[signal.SourceID]string, len(u.Paths))
	for id, path := range u.Paths {
		paths[signal.SourceID(id)] = path
	}
	return paths
}

// Transport returns the client template for signal upstreams.
func (u UpstreamPolicy) Transport() resilience.ClientConfig {
	cb := resilience.DefaultCircuitBreakerConfig("")
	if u.BreakerTimeout > 0 {
		cb.Timeout = u.BreakerTimeout
	}
	return resilience.ClientConfig{
		Timeout:         u.Timeout,
		MaxRetries:      u.MaxRetries,
		InitialInterval: u.InitialInterval,
		MaxInterval:     u.MaxInterval,
		CircuitBreaker:  &cb,
	}
}

func validPct(v float64) bool {
	return !math.IsNaN(v) && v > 0 && v <= 100
}

func validRatio(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
