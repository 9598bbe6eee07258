package aggregator

import (
	"errors"
	"time"
)

// Aggregator errors.
var (
	// ErrRefreshInProgress is returned when a refresh is requested while a
	// cycle is already running. The request is dropped, not queued.
	ErrRefreshInProgress = errors.New("refresh already in progress")
)

// Stats tracks cycle statistics for one controller.
type Stats struct {
	TotalCycles       int64         `json:"totalCycles"`
	CoalescedTriggers int64         `json:"coalescedTriggers"`
	SourceFailures    int64         `json:"sourceFailures"`
	LastCycleAt       time.Time     `json:"lastCycleAt"`
	LastCycleDuration time.Duration `json:"lastCycleDuration"`
	LastFailedSources []string      `json:"lastFailedSources,omitempty"`
}
