package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/alert"
	"github.com/mentionwatch/console/internal/api/middleware"
	"github.com/mentionwatch/console/internal/api/models"
	"github.com/mentionwatch/console/internal/api/response"
	"github.com/mentionwatch/console/internal/dashboard"
	"github.com/mentionwatch/console/internal/signal"
)

// DashboardHandler serves dashboard views, alerts and manual refreshes.
type DashboardHandler struct {
	dashboards *dashboard.Registry
	logger     zerolog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(dashboards *dashboard.Registry, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, logger: logger}
}

// ListDashboards handles GET /v1/dashboards.
func (h *DashboardHandler) ListDashboards(w http.ResponseWriter, r *http.Request) {
	list := h.dashboards.List()
	out := models.DashboardList{Dashboards: make([]models.DashboardSummary, 0, len(list))}
	for _, d := range list {
		view := d.View()
		summary := models.DashboardSummary{
			ID:         view.Dashboard,
			Title:      view.Title,
			Overall:    view.Health.Overall,
			AlertCount: view.AlertCount,
			Counts:     view.Counts,
			Refreshing: view.Refreshing,
		}
		if view.State != nil {
			summary.Cycle = view.State.Cycle
			summary.LastCycleAt = models.TimestampPtr(&view.State.CycleCompletedAt)
		}
		out.Dashboards = append(out.Dashboards, summary)
	}
	response.OK(w, r, out)
}

// GetDashboard handles GET /v1/dashboards/{dashboardId}.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.OK(w, r, d.View())
}

// ListAlerts handles GET /v1/dashboards/{dashboardId}/alerts. An optional
// severity query parameter (comma separated) filters the feed.
func (h *DashboardHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}

	filter, fieldErrs := parseSeverities(r.URL.Query().Get("severity"))
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid severity filter", fieldErrs)
		return
	}

	view := d.View()
	alerts := view.Alerts
	if len(filter) > 0 {
		alerts = make([]alert.Alert, 0, len(view.Alerts))
		for _, a := range view.Alerts {
			if filter[a.Severity] {
				alerts = append(alerts, a)
			}
		}
	}

	response.OK(w, r, models.AlertList{
		Dashboard: view.Dashboard,
		Alerts:    alerts,
		Total:     len(alerts),
		Counts:    alert.Counts(alerts),
	})
}

// GetHealth handles GET /v1/dashboards/{dashboardId}/health.
func (h *DashboardHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}

	view := d.View()
	out := models.HealthReport{
		Dashboard: view.Dashboard,
		Report:    view.Health,
	}
	if view.State != nil {
		out.Cycle = view.State.Cycle
		out.CompletedAt = models.TimestampPtr(&view.State.CycleCompletedAt)
		out.FailedSources = sourceNames(view.State.Failed())
	}
	response.OK(w, r, out)
}

// Refresh handles POST /v1/dashboards/{dashboardId}/refresh. A refresh that
// lands while a cycle is running is coalesced into it and answered with 202
// and the current view.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}

	// A client disconnect must not discard a cycle that other viewers share.
	view, coalesced, err := d.Refresh(context.WithoutCancel(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("dashboard", d.ID()).
			Msg("manual refresh failed")
		response.InternalError(w, r)
		return
	}

	if coalesced {
		response.Accepted(w, r, "/v1/dashboards/"+d.ID(), view)
		return
	}
	response.OK(w, r, view)
}

func (h *DashboardHandler) lookup(w http.ResponseWriter, r *http.Request) (*dashboard.Dashboard, bool) {
	id := chi.URLParam(r, "dashboardId")
	d, err := h.dashboards.Get(id)
	if err != nil {
		if errors.Is(err, dashboard.ErrNotFound) {
			response.NotFound(w, r, "dashboard "+id+" not found")
			return nil, false
		}
		response.InternalError(w, r)
		return nil, false
	}
	return d, true
}

func parseSeverities(raw string) (map[alert.Severity]bool, []models.FieldError) {
	if raw == "" {
		return nil, nil
	}
	filter := make(map[alert.Severity]bool)
	for _, part := range strings.Split(raw, ",") {
		sev := alert.Severity(strings.ToLower(strings.TrimSpace(part)))
		switch sev {
		case alert.SeverityHigh, alert.SeverityMedium, alert.SeverityLow:
			filter[sev] = true
		default:
			return nil, []models.FieldError{{
				Field:   "severity",
				Message: "severity must be one of high, medium, low",
				Code:    "INVALID_ENUM",
			}}
		}
	}
	return filter, nil
}

func sourceNames(ids []signal.SourceID) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(id))
	}
	return names
}
