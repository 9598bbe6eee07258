// Package app assembles the dashboards shared by the api and worker
// processes from the process config and the policy file.
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/aggregator"
	"github.com/mentionwatch/console/internal/config"
	"github.com/mentionwatch/console/internal/dashboard"
	"github.com/mentionwatch/console/internal/provider/resilience"
	"github.com/mentionwatch/console/internal/signal"
)

// DashboardsConfig holds what BuildDashboards needs.
type DashboardsConfig struct {
	Config config.Config
	Policy config.Policy

	// Instrument enables the aggregator and dashboard metrics.
	Instrument bool

	Logger zerolog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Dashboards is the assembled set of dashboards and the upstream registry
// their sources report into.
type Dashboards struct {
	Registry  *dashboard.Registry
	Upstreams *resilience.Registry
}

// BuildDashboards creates one controller and dashboard per policy entry.
// Sources with the same id share one client across dashboards.
func BuildDashboards(cfg DashboardsConfig) (*Dashboards, error) {
	upstreams := resilience.NewRegistry()
	factory := signal.NewFactory(signal.FactoryConfig{
		BaseURL:          cfg.Config.UpstreamBaseURL,
		APIKey:           cfg.Config.UpstreamAPIKey,
		Paths:            cfg.Policy.Upstream.SourcePaths(),
		Transport:        cfg.Policy.Upstream.Transport(),
		Registry:         upstreams,
		CursorStaleAge:   cfg.Policy.Thresholds.CursorStaleAge,
		CronOverdueGrace: cfg.Policy.Thresholds.CronOverdueGrace,
		Logger:           cfg.Logger,
		Now:              cfg.Now,
	})

	var (
		cycleMetrics *aggregator.Metrics
		alertMetrics *dashboard.Metrics
		err          error
	)
	if cfg.Instrument {
		if cycleMetrics, err = aggregator.NewMetrics(); err != nil {
			return nil, fmt.Errorf("creating aggregator metrics: %w", err)
		}
		if alertMetrics, err = dashboard.NewMetrics(); err != nil {
			return nil, fmt.Errorf("creating dashboard metrics: %w", err)
		}
	}

	registry := dashboard.NewRegistry()
	for _, dp := range cfg.Policy.Dashboards {
		sources, err := factory.Build(dp.SourceIDs())
		if err != nil {
			return nil, fmt.Errorf("building sources of %s: %w", dp.ID, err)
		}

		logger := cfg.Logger.With().Str("dashboard", dp.ID).Logger()
		controller := aggregator.New(aggregator.Config{
			Name:     dp.ID,
			Sources:  sources,
			Interval: dp.Interval,
			Logger:   logger,
			Metrics:  cycleMetrics,
			Now:      cfg.Now,
		})

		d := dashboard.New(dashboard.Config{
			ID:         dp.ID,
			Title:      dp.Title,
			Controller: controller,
			Thresholds: cfg.Policy.Thresholds,
			Metrics:    alertMetrics,
			Logger:     logger,
		})
		if err := registry.Add(d); err != nil {
			return nil, fmt.Errorf("registering %s: %w", dp.ID, err)
		}
	}

	return &Dashboards{Registry: registry, Upstreams: upstreams}, nil
}
