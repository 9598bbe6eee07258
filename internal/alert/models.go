package alert

import (
	"strings"
	"time"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AllSeverities returns every severity from most to least severe.
func AllSeverities() []Severity {
	return []Severity{SeverityHigh, SeverityMedium, SeverityLow}
}

// Alert is one condition derived from an aggregated state. The same
// condition in consecutive cycles yields the same ID.
type Alert struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Service   string    `json:"service"`
	CreatedAt time.Time `json:"createdAt"`
}

// Counts tallies alerts by severity. Every severity is present.
func Counts(alerts []Alert) map[Severity]int {
	counts := map[Severity]int{
		SeverityHigh:   0,
		SeverityMedium: 0,
		SeverityLow:    0,
	}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	return counts
}

// SeverityFromString maps an upstream severity label to a Severity.
// Unrecognized labels are medium.
func SeverityFromString(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "high", "error":
		return SeverityHigh
	case "low", "info":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// makeID joins id parts with dashes. Empty parts are skipped and whitespace
// inside a part becomes a dash; case is preserved.
func makeID(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), "-")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "-")
}
