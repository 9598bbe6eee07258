// Package worker consumes remote refresh triggers and reports the alert
// feed of running dashboards.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/dashboard"
)

// JobTypeDashboardRefresh asks for an immediate refresh of dashboards.
const JobTypeDashboardRefresh = "dashboard_refresh"

// TriggerMessage is the payload of a refresh trigger.
type TriggerMessage struct {
	JobType string `json:"job_type"`
	// Dashboards lists the ids to refresh; empty means every dashboard.
	Dashboards []string `json:"dashboards,omitempty"`
}

// TriggerResult summarizes one handled trigger.
type TriggerResult struct {
	Refreshed []string
	Coalesced []string
	Unknown   []string
	Duration  time.Duration
}

// TriggerHandler turns trigger messages into dashboard refreshes.
type TriggerHandler struct {
	dashboards *dashboard.Registry
	logger     zerolog.Logger
}

// NewTriggerHandler creates a TriggerHandler over dashboards.
func NewTriggerHandler(dashboards *dashboard.Registry, logger zerolog.Logger) *TriggerHandler {
	return &TriggerHandler{dashboards: dashboards, logger: logger}
}

// Handle parses data and refreshes the requested dashboards in order. A
// trigger that lands on a running cycle is coalesced into it. The returned
// error is non-nil only when a refresh failed and redelivery could help.
// Messages that can never succeed are reported through the result and
// logged, not returned.
func (h *TriggerHandler) Handle(ctx context.Context, data []byte) (TriggerResult, error) {
	start := time.Now()
	var result TriggerResult

	var msg TriggerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error().Err(err).Msg("discarding malformed trigger")
		return result, nil
	}
	if msg.JobType != JobTypeDashboardRefresh {
		h.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return result, nil
	}

	targets := h.dashboards.List()
	if len(msg.Dashboards) > 0 {
		targets = make([]*dashboard.Dashboard, 0, len(msg.Dashboards))
		for _, id := range msg.Dashboards {
			d, err := h.dashboards.Get(id)
			if err != nil {
				result.Unknown = append(result.Unknown, id)
				continue
			}
			targets = append(targets, d)
		}
	}
	if len(result.Unknown) > 0 {
		h.logger.Warn().Strs("dashboards", result.Unknown).Msg("trigger names unknown dashboards")
	}

	for _, d := range targets {
		_, coalesced, err := d.Refresh(ctx)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("refreshing %s: %w", d.ID(), err)
		}
		if coalesced {
			result.Coalesced = append(result.Coalesced, d.ID())
		} else {
			result.Refreshed = append(result.Refreshed, d.ID())
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}
