package models

// Health is the liveness response.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus reports upstream circuits and dashboard cycles.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Upstreams  []UpstreamStatus  `json:"upstreams"`
	Dashboards []DashboardStatus `json:"dashboards"`
}

// UpstreamStatus is the transport health of one signal endpoint.
type UpstreamStatus struct {
	Source              string       `json:"source"`
	Status              HealthStatus `json:"status"`
	Circuit             string       `json:"circuit"`
	Requests            uint32       `json:"requests"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError           string       `json:"lastError,omitempty"`
}

// DashboardStatus is the cycle bookkeeping of one dashboard.
type DashboardStatus struct {
	ID                string     `json:"id"`
	Interval          string     `json:"interval"`
	Sources           []string   `json:"sources"`
	Refreshing        bool       `json:"refreshing"`
	Subscribers       int        `json:"subscribers"`
	TotalCycles       int64      `json:"totalCycles"`
	CoalescedTriggers int64      `json:"coalescedTriggers"`
	SourceFailures    int64      `json:"sourceFailures"`
	LastCycleAt       *Timestamp `json:"lastCycleAt,omitempty"`
	LastCycleDuration string     `json:"lastCycleDuration,omitempty"`
	LastFailedSources []string   `json:"lastFailedSources,omitempty"`
}
