package models

import (
	"github.com/mentionwatch/console/internal/alert"
	"github.com/mentionwatch/console/internal/health"
)

// DashboardSummary is one entry of the dashboard list.
type DashboardSummary struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Overall     health.Tier            `json:"overall"`
	AlertCount  int                    `json:"alertCount"`
	Counts      map[alert.Severity]int `json:"counts"`
	Cycle       uint64                 `json:"cycle"`
	LastCycleAt *Timestamp             `json:"lastCycleAt,omitempty"`
	Refreshing  bool                   `json:"refreshing"`
}

// DashboardList is the response of GET /dashboards.
type DashboardList struct {
	Dashboards []DashboardSummary `json:"dashboards"`
}

// AlertList is the response of GET /dashboards/{id}/alerts.
type AlertList struct {
	Dashboard string                 `json:"dashboard"`
	Alerts    []alert.Alert          `json:"alerts"`
	Total     int                    `json:"total"`
	Counts    map[alert.Severity]int `json:"counts"`
}

// HealthReport is the response of GET /dashboards/{id}/health.
type HealthReport struct {
	Dashboard     string        `json:"dashboard"`
	Cycle         uint64        `json:"cycle"`
	CompletedAt   *Timestamp    `json:"completedAt,omitempty"`
	Report        health.Report `json:"report"`
	FailedSources []string      `json:"failedSources,omitempty"`
}
