package signal

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCronOverdueGrace is used when a cron source is built without a grace period.
const DefaultCronOverdueGrace = 10 * time.Minute

type cronJobWire struct {
	Name       string       `json:"name"`
	Schedule   string       `json:"schedule"`
	Enabled    optionalBool `json:"enabled"`
	LastRunAt  timestamp    `json:"last_run_at"`
	LastStatus string       `json:"last_status"`
	LastError  string       `json:"last_error"`
}

type cronHistoryWire struct {
	Jobs []cronJobWire `json:"jobs"`
}

// NewCronSource creates the cron execution history source. A job whose next
// expected run is more than grace in the past is flagged overdue.
func NewCronSource(cfg HTTPSourceConfig, grace time.Duration) *HTTPSource[CronHistory] {
	cfg.ID = SourceCron
	if grace <= 0 {
		grace = DefaultCronOverdueGrace
	}
	return NewHTTPSource(cfg, func(data json.RawMessage, now time.Time) (CronHistory, error) {
		return normalizeCron(data, now, grace)
	})
}

func normalizeCron(data json.RawMessage, now time.Time, grace time.Duration) (CronHistory, error) {
	var wire cronHistoryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return CronHistory{}, fmt.Errorf("decoding cron history: %w", err)
	}

	history := CronHistory{Jobs: make([]CronJob, 0, len(wire.Jobs))}
	for _, j := range wire.Jobs {
		if j.Name == "" {
			continue
		}
		job := CronJob{
			Name:       j.Name,
			Schedule:   j.Schedule,
			Enabled:    j.Enabled.or(false),
			LastRunAt:  j.LastRunAt.ptr(),
			LastStatus: normalizeRunStatus(j.LastStatus),
			LastError:  j.LastError,
		}
		job.NextExpectedAt = nextRun(job.Schedule, job.LastRunAt)
		job.Overdue = job.Enabled && job.NextExpectedAt != nil && now.After(job.NextExpectedAt.Add(grace))
		history.Jobs = append(history.Jobs, job)
	}

	sort.SliceStable(history.Jobs, func(i, j int) bool {
		return history.Jobs[i].Name < history.Jobs[j].Name
	})

	return history, nil
}

// nextRun returns the first activation of schedule after the last run, or nil
// when the job never ran or the schedule does not parse.
func nextRun(schedule string, lastRunAt *time.Time) *time.Time {
	if lastRunAt == nil || schedule == "" {
		return nil
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil
	}
	next := sched.Next(*lastRunAt)
	if next.IsZero() {
		return nil
	}
	return &next
}

func normalizeRunStatus(s string) string {
	switch normalizeWord(s) {
	case "success", "succeeded", "ok", "completed":
		return CronStatusSuccess
	case "failed", "failure", "error":
		return CronStatusFailed
	case "running", "in_progress":
		return CronStatusRunning
	default:
		return normalizeWord(s)
	}
}
