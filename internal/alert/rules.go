package alert

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mentionwatch/console/internal/health"
	"github.com/mentionwatch/console/internal/signal"
)

func sourceUnavailability(state *signal.AggregatedState, _ health.Thresholds) []Alert {
	limits, at, ok := signal.PayloadAs[signal.APILimits](state, signal.SourceAPILimits)
	if !ok {
		return nil
	}

	var alerts []Alert
	for _, s := range sortedServices(limits) {
		if s.Available {
			continue
		}
		alerts = append(alerts, Alert{
			ID:        makeID("api", s.Service, "unavailable"),
			Severity:  SeverityHigh,
			Title:     "API unavailable",
			Message:   fmt.Sprintf("The %s API is reporting as unavailable.", s.Service),
			Service:   s.Service,
			CreatedAt: at,
		})
	}
	return alerts
}

func quotaExhaustion(state *signal.AggregatedState, t health.Thresholds) []Alert {
	usage, at, ok := signal.PayloadAs[signal.QuotaUsage](state, signal.SourceQuota)
	if !ok {
		return nil
	}

	entries := append([]signal.QuotaEntry(nil), usage.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].UserID != entries[j].UserID {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].SourceType < entries[j].SourceType
	})

	var alerts []Alert
	for _, e := range entries {
		if health.ClassifyUtilization(e.Utilization, t) != health.TierCritical {
			continue
		}
		alerts = append(alerts, Alert{
			ID:       makeID("quota", e.UserID, e.SourceType),
			Severity: SeverityHigh,
			Title:    "Quota nearly exhausted",
			Message: fmt.Sprintf("User %s has used %s of their %s quota (%d of %d).",
				e.UserID, percent(e.Utilization), e.SourceType, e.Used, e.Limit),
			Service:   e.SourceType,
			CreatedAt: at,
		})
	}
	return alerts
}

// elevatedUsage emits medium alerts for usage in (elevated, critical] and
// high alerts above critical. Services without a usage reading are skipped.
func elevatedUsage(state *signal.AggregatedState, t health.Thresholds) []Alert {
	limits, at, ok := signal.PayloadAs[signal.APILimits](state, signal.SourceAPILimits)
	if !ok {
		return nil
	}

	var alerts []Alert
	for _, s := range sortedServices(limits) {
		if s.UsagePercent == nil {
			continue
		}
		usage := *s.UsagePercent
		switch {
		case usage > t.UtilizationCriticalPct:
			alerts = append(alerts, Alert{
				ID:        makeID("api", s.Service, "usage-critical"),
				Severity:  SeverityHigh,
				Title:     "API usage critical",
				Message:   fmt.Sprintf("The %s API is at %s of its rate limit.", s.Service, percent(usage)),
				Service:   s.Service,
				CreatedAt: at,
			})
		case usage > t.UsageElevatedPct:
			alerts = append(alerts, Alert{
				ID:        makeID("api", s.Service, "elevated-usage"),
				Severity:  SeverityMedium,
				Title:     "Elevated API usage",
				Message:   fmt.Sprintf("The %s API is at %s of its rate limit.", s.Service, percent(usage)),
				Service:   s.Service,
				CreatedAt: at,
			})
		}
	}
	return alerts
}

// automatedFetchSubsystem is the subsystem name graded from the automated
// fetch recency when the upstream does not report it itself.
const automatedFetchSubsystem = "automated_fetch"

func subsystemDegradation(state *signal.AggregatedState, t health.Thresholds) []Alert {
	sys, at, ok := signal.PayloadAs[signal.SystemHealth](state, signal.SourceSystemHealth)
	if !ok {
		return nil
	}

	type finding struct {
		severity Severity
		message  string
	}
	findings := make(map[string]finding, len(sys.Subsystems)+1)

	for name, sub := range sys.Subsystems {
		severity, fire := subsystemSeverity(sub.Status)
		if !fire {
			continue
		}
		msg := fmt.Sprintf("The %s subsystem reports status %q.", name, sub.Status)
		if sub.Detail != "" {
			msg += " " + sub.Detail
		}
		findings[name] = finding{severity: severity, message: msg}
	}

	if _, reported := sys.Subsystems[automatedFetchSubsystem]; !reported {
		if severity, fire := automatedFetchSeverity(sys.AutomatedFetch, at, t); fire {
			findings[automatedFetchSubsystem] = finding{
				severity: severity,
				message: fmt.Sprintf("Automated fetch last ran %d minutes ago, expected every %d minutes.",
					health.ElapsedMinutes(*sys.AutomatedFetch.LastRunAt, at), sys.AutomatedFetch.FrequencyMinutes),
			}
		}
	}

	names := make([]string, 0, len(findings))
	for name := range findings {
		names = append(names, name)
	}
	sort.Strings(names)

	alerts := make([]Alert, 0, len(names))
	for _, name := range names {
		f := findings[name]
		alerts = append(alerts, Alert{
			ID:        makeID("system", name, "unhealthy"),
			Severity:  f.severity,
			Title:     "Subsystem degraded",
			Message:   f.message,
			Service:   name,
			CreatedAt: at,
		})
	}
	return alerts
}

// subsystemSeverity scales with distance from nominal. Healthy and
// unrecognized statuses do not fire.
func subsystemSeverity(status string) (Severity, bool) {
	switch health.ClassifySubsystem(status) {
	case health.TierCritical:
		return SeverityHigh, true
	case health.TierWarning:
		if strings.EqualFold(strings.TrimSpace(status), health.StatusEmpty) {
			return SeverityLow, true
		}
		return SeverityMedium, true
	default:
		return "", false
	}
}

// automatedFetchSeverity follows the automated fetch tier of the health report.
func automatedFetchSeverity(a signal.AutomatedFetch, now time.Time, t health.Thresholds) (Severity, bool) {
	switch health.AutomatedFetchTier(a, now, t) {
	case health.TierCritical:
		return SeverityHigh, true
	case health.TierWarning:
		return SeverityMedium, true
	default:
		return "", false
	}
}

func queueHealth(state *signal.AggregatedState, t health.Thresholds) []Alert {
	q, at, ok := signal.PayloadAs[signal.QueueStats](state, signal.SourceQueue)
	if !ok {
		return nil
	}

	var alerts []Alert
	if q.Failed > t.QueueFailedCeiling {
		alerts = append(alerts, Alert{
			ID:        "queue-high-failures",
			Severity:  SeverityHigh,
			Title:     "High queue failure count",
			Message:   fmt.Sprintf("%d queue entries have failed (threshold %d).", q.Failed, t.QueueFailedCeiling),
			Service:   "queue",
			CreatedAt: at,
		})
	}

	if q.OldestPendingAt != nil {
		age := at.Sub(*q.OldestPendingAt)
		if health.ClassifyAge(age, t.QueueStaleAge) != health.TierHealthy {
			alerts = append(alerts, Alert{
				ID:        "queue-stale-entries",
				Severity:  SeverityMedium,
				Title:     "Stale queue entries",
				Message:   fmt.Sprintf("The oldest pending entry has waited %s.", age.Truncate(time.Minute)),
				Service:   "queue",
				CreatedAt: at,
			})
		}
	}

	sources := make([]string, 0, len(q.BySource))
	for name := range q.BySource {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	for _, name := range sources {
		c := q.BySource[name]
		if health.ClassifyFailureRate(c.Failed, c.Total, t.SourceFailureRatio) == health.TierHealthy {
			continue
		}
		alerts = append(alerts, Alert{
			ID:       makeID("queue", name, "high-failure-rate"),
			Severity: SeverityMedium,
			Title:    "High failure rate",
			Message: fmt.Sprintf("%s of %s queue entries failed (%d of %d).",
				percent(health.FailureRate(c.Failed, c.Total)*100), name, c.Failed, c.Total),
			Service:   name,
			CreatedAt: at,
		})
	}
	return alerts
}

// cursorHealth passes upstream issues through in input order, then adds the
// aggregate error-ratio and stale-count conditions.
func cursorHealth(state *signal.AggregatedState, t health.Thresholds) []Alert {
	cs, at, ok := signal.PayloadAs[signal.CursorStatus](state, signal.SourceCursors)
	if !ok {
		return nil
	}

	var alerts []Alert
	used := make(map[string]int)
	for _, issue := range cs.Issues {
		base := makeID("cursor-issue", issue.Type, issue.CursorID)
		used[base]++
		id := base
		if n := used[base]; n > 1 {
			id = base + "-" + strconv.Itoa(n)
		}

		service := issue.SourceType
		if service == "" {
			service = "cursors"
		}
		msg := issue.Message
		if msg == "" {
			msg = fmt.Sprintf("Cursor issue %q reported.", issue.Type)
		}
		alerts = append(alerts, Alert{
			ID:        id,
			Severity:  SeverityFromString(issue.Severity),
			Title:     "Cursor issue",
			Message:   msg,
			Service:   service,
			CreatedAt: at,
		})
	}

	if total := cs.Total(); total > 0 && health.FailureRate(cs.Errored, total) > t.CursorErrorRatio {
		alerts = append(alerts, Alert{
			ID:       "cursor-high-error-rate",
			Severity: SeverityHigh,
			Title:    "High cursor error rate",
			Message: fmt.Sprintf("%d of %d cursors are in an error state (%s).",
				cs.Errored, total, percent(health.FailureRate(cs.Errored, total)*100)),
			Service:   "cursors",
			CreatedAt: at,
		})
	}

	if cs.Stale > t.StaleCursorCeiling {
		alerts = append(alerts, Alert{
			ID:        "cursor-stale-count",
			Severity:  SeverityMedium,
			Title:     "Many stale cursors",
			Message:   fmt.Sprintf("%d cursors have not fetched within %s.", cs.Stale, t.CursorStaleAge),
			Service:   "cursors",
			CreatedAt: at,
		})
	}
	return alerts
}

func cronHealth(state *signal.AggregatedState, _ health.Thresholds) []Alert {
	history, at, ok := signal.PayloadAs[signal.CronHistory](state, signal.SourceCron)
	if !ok {
		return nil
	}

	jobs := append([]signal.CronJob(nil), history.Jobs...)
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	var alerts []Alert
	for _, job := range jobs {
		if job.Failed() {
			msg := fmt.Sprintf("The last run of %s failed.", job.Name)
			if job.LastError != "" {
				msg = fmt.Sprintf("The last run of %s failed: %s", job.Name, job.LastError)
			}
			alerts = append(alerts, Alert{
				ID:        makeID("cron", job.Name, "failed"),
				Severity:  SeverityMedium,
				Title:     "Cron job failed",
				Message:   msg,
				Service:   job.Name,
				CreatedAt: at,
			})
		}
		if job.Overdue && job.NextExpectedAt != nil {
			alerts = append(alerts, Alert{
				ID:       makeID("cron", job.Name, "overdue"),
				Severity: SeverityMedium,
				Title:    "Cron job overdue",
				Message: fmt.Sprintf("%s was expected to run at %s.",
					job.Name, job.NextExpectedAt.UTC().Format(time.RFC3339)),
				Service:   job.Name,
				CreatedAt: at,
			})
		}
	}
	return alerts
}

func recoveryFailures(state *signal.AggregatedState, _ health.Thresholds) []Alert {
	r, at, ok := signal.PayloadAs[signal.RecoveryStatus](state, signal.SourceRecovery)
	if !ok || r.Failed == 0 {
		return nil
	}
	return []Alert{{
		ID:        "recovery-failures",
		Severity:  SeverityMedium,
		Title:     "Cursor recovery failures",
		Message:   fmt.Sprintf("%d cursor recoveries failed.", r.Failed),
		Service:   "recovery",
		CreatedAt: at,
	}}
}

func sortedServices(l signal.APILimits) []signal.ServiceLimit {
	services := append([]signal.ServiceLimit(nil), l.Services...)
	sort.SliceStable(services, func(i, j int) bool { return services[i].Service < services[j].Service })
	return services
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}
