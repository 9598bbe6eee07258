package signal

import "time"

// SourceCounts are queue counters for one API source.
type SourceCounts struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Running     int     `json:"running"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	FailureRate float64 `json:"failureRate"`
}

// QueueStats is the normalized payload of the queue source.
type QueueStats struct {
	Total           int                     `json:"total"`
	Pending         int                     `json:"pending"`
	Running         int                     `json:"running"`
	Completed       int                     `json:"completed"`
	Failed          int                     `json:"failed"`
	BySource        map[string]SourceCounts `json:"bySource"`
	OldestPendingAt *time.Time              `json:"oldestPendingAt,omitempty"`
}

// QuotaEntry is one user's usage of one source type.
type QuotaEntry struct {
	UserID     string `json:"userId"`
	SourceType string `json:"sourceType"`
	Used       int    `json:"used"`
	Limit      int    `json:"limit"`
	// Utilization is a percentage in [0, +inf).
	Utilization float64 `json:"utilization"`
}

// QuotaUsage is the normalized payload of the quota source.
type QuotaUsage struct {
	Entries []QuotaEntry `json:"entries"`
}

// ServiceLimit is the availability and usage of one external API.
type ServiceLimit struct {
	Service   string `json:"service"`
	Available bool   `json:"available"`
	// UsagePercent is nil when the upstream has no usage reading.
	UsagePercent *float64   `json:"usagePercent,omitempty"`
	Used         int        `json:"used"`
	Limit        int        `json:"limit"`
	ResetAt      *time.Time `json:"resetAt,omitempty"`
}

// APILimits is the normalized payload of the api_limits source.
type APILimits struct {
	Services []ServiceLimit `json:"services"`
}

// SubsystemStatus is the reported state of one core subsystem.
type SubsystemStatus struct {
	Status         string     `json:"status"`
	Detail         string     `json:"detail,omitempty"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

// AutomatedFetch describes the backend's automated fetch loop.
type AutomatedFetch struct {
	LastRunAt        *time.Time `json:"lastRunAt,omitempty"`
	FrequencyMinutes int        `json:"frequencyMinutes"`
}

// SystemHealth is the normalized payload of the system_health source.
type SystemHealth struct {
	Subsystems     map[string]SubsystemStatus `json:"subsystems"`
	AutomatedFetch AutomatedFetch             `json:"automatedFetch"`
}

// Cursor states.
const (
	CursorActive = "active"
	CursorStale  = "stale"
	CursorError  = "error"
)

// Cursor is one pagination cursor kept by the fetch backend.
type Cursor struct {
	ID            string     `json:"id"`
	SourceType    string     `json:"sourceType"`
	Status        string     `json:"status"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	Error         string     `json:"error,omitempty"`
	// State is derived: error, stale or active.
	State string `json:"state"`
}

// CursorIssue is a problem the cursor upstream reports explicitly.
type CursorIssue struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	CursorID   string `json:"cursorId,omitempty"`
	SourceType string `json:"sourceType,omitempty"`
}

// CursorStatus is the normalized payload of the cursors source.
type CursorStatus struct {
	Cursors []Cursor      `json:"cursors"`
	Issues  []CursorIssue `json:"issues"`
	Active  int           `json:"active"`
	Stale   int           `json:"stale"`
	Errored int           `json:"errored"`
}

// Total returns the number of cursors.
func (c CursorStatus) Total() int {
	return len(c.Cursors)
}

// Cron run statuses.
const (
	CronStatusSuccess = "success"
	CronStatusFailed  = "failed"
	CronStatusRunning = "running"
)

// CronJob is one scheduled backend job and its latest execution.
type CronJob struct {
	Name           string     `json:"name"`
	Schedule       string     `json:"schedule"`
	Enabled        bool       `json:"enabled"`
	LastRunAt      *time.Time `json:"lastRunAt,omitempty"`
	LastStatus     string     `json:"lastStatus,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	NextExpectedAt *time.Time `json:"nextExpectedAt,omitempty"`
	Overdue        bool       `json:"overdue"`
}

// Failed reports whether the job's last run failed.
func (j CronJob) Failed() bool {
	return j.LastStatus == CronStatusFailed
}

// CronHistory is the normalized payload of the cron source.
type CronHistory struct {
	Jobs []CronJob `json:"jobs"`
}

// RecoveryStatus is the normalized payload of the recovery source.
type RecoveryStatus struct {
	InProgress     int        `json:"inProgress"`
	Pending        int        `json:"pending"`
	Failed         int        `json:"failed"`
	LastRecoveryAt *time.Time `json:"lastRecoveryAt,omitempty"`
}
