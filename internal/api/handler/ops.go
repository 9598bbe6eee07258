// Package handler implements the console API endpoints.
package handler

import (
	"net/http"
	"time"

	"github.com/mentionwatch/console/internal/api/models"
	"github.com/mentionwatch/console/internal/api/response"
	"github.com/mentionwatch/console/internal/dashboard"
	"github.com/mentionwatch/console/internal/provider/resilience"
)

// OpsHandler serves liveness and status endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	upstreams  *resilience.Registry
	dashboards *dashboard.Registry
	now        func() time.Time
}

// OpsConfig holds dependencies for OpsHandler.
type OpsConfig struct {
	Version    string
	BuildTime  string
	Upstreams  *resilience.Registry
	Dashboards *dashboard.Registry
	Now        func() time.Time
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.Upstreams == nil {
		cfg.Upstreams = resilience.NewRegistry()
	}
	if cfg.Dashboards == nil {
		cfg.Dashboards = dashboard.NewRegistry()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OpsHandler{
		version:    cfg.Version,
		buildTime:  cfg.BuildTime,
		upstreams:  cfg.Upstreams,
		dashboards: cfg.Dashboards,
		now:        cfg.Now,
	}
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// SystemStatus handles GET /v1/ops/status. The overall status is FAIL when
// every upstream circuit is open and DEGRADED when any is not closed.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	all := h.upstreams.AllHealth()
	upstreams := make([]models.UpstreamStatus, 0, len(all))
	open, notClosed := 0, 0
	for _, u := range all {
		status := models.HealthStatusOK
		switch {
		case u.IsHealthy():
		case u.IsDegraded():
			status = models.HealthStatusDegraded
			notClosed++
		default:
			status = models.HealthStatusFail
			notClosed++
			open++
		}
		upstreams = append(upstreams, models.UpstreamStatus{
			Source:              u.Name,
			Status:              status,
			Circuit:             u.CircuitState.String(),
			Requests:            u.Counts.Requests,
			ConsecutiveFailures: u.Counts.ConsecutiveFailures,
			LastSuccessAt:       models.TimestampPtr(u.LastSuccessAt),
			LastFailureAt:       models.TimestampPtr(u.LastFailureAt),
			LastError:           u.LastError,
		})
	}

	overall := models.HealthStatusOK
	switch {
	case len(all) > 0 && open == len(all):
		overall = models.HealthStatusFail
	case notClosed > 0:
		overall = models.HealthStatusDegraded
	}

	list := h.dashboards.List()
	dashboards := make([]models.DashboardStatus, 0, len(list))
	for _, d := range list {
		c := d.Controller()
		stats := c.Stats()

		sources := make([]string, 0)
		for _, id := range c.SourceIDs() {
			sources = append(sources, string(id))
		}

		ds := models.DashboardStatus{
			ID:                d.ID(),
			Interval:          c.Interval().String(),
			Sources:           sources,
			Refreshing:        c.Refreshing(),
			Subscribers:       c.Subscribers(),
			TotalCycles:       stats.TotalCycles,
			CoalescedTriggers: stats.CoalescedTriggers,
			SourceFailures:    stats.SourceFailures,
			LastCycleAt:       models.TimestampPtr(&stats.LastCycleAt),
			LastFailedSources: stats.LastFailedSources,
		}
		if stats.TotalCycles > 0 {
			ds.LastCycleDuration = stats.LastCycleDuration.String()
		}
		dashboards = append(dashboards, ds)
	}

	response.OK(w, r, models.SystemStatus{
		Status:     overall,
		Time:       models.Timestamp(h.now()),
		Upstreams:  upstreams,
		Dashboards: dashboards,
	})
}
