package signal

import (
	"encoding/json"
	"fmt"
	"time"
)

type queueCountsWire struct {
	Total     count `json:"total"`
	Pending   count `json:"pending"`
	Running   count `json:"running"`
	Completed count `json:"completed"`
	Failed    count `json:"failed"`
}

type queueWire struct {
	queueCountsWire
	OldestPendingAt timestamp                  `json:"oldest_pending_at"`
	ByAPISource     map[string]queueCountsWire `json:"by_api_source"`
}

// NewQueueSource creates the queue summary source.
func NewQueueSource(cfg HTTPSourceConfig) *HTTPSource[QueueStats] {
	cfg.ID = SourceQueue
	return NewHTTPSource(cfg, normalizeQueue)
}

func normalizeQueue(data json.RawMessage, _ time.Time) (QueueStats, error) {
	var wire queueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return QueueStats{}, fmt.Errorf("decoding queue stats: %w", err)
	}

	stats := QueueStats{
		BySource:        make(map[string]SourceCounts, len(wire.ByAPISource)),
		OldestPendingAt: wire.OldestPendingAt.ptr(),
	}

	var summed SourceCounts
	for name, raw := range wire.ByAPISource {
		if name == "" {
			continue
		}
		counts := flattenCounts(raw)
		stats.BySource[name] = counts
		summed.Total += counts.Total
		summed.Pending += counts.Pending
		summed.Running += counts.Running
		summed.Completed += counts.Completed
		summed.Failed += counts.Failed
	}

	top := flattenCounts(wire.queueCountsWire)
	if top.Total == 0 && summed.Total > 0 {
		top = summed
	}

	stats.Total = top.Total
	stats.Pending = top.Pending
	stats.Running = top.Running
	stats.Completed = top.Completed
	stats.Failed = top.Failed

	return stats, nil
}

// flattenCounts fills Total from the four states when the upstream total is
// absent, and derives the failure rate with a zero-total guard.
func flattenCounts(w queueCountsWire) SourceCounts {
	c := SourceCounts{
		Total:     int(w.Total),
		Pending:   int(w.Pending),
		Running:   int(w.Running),
		Completed: int(w.Completed),
		Failed:    int(w.Failed),
	}
	if c.Total <= 0 {
		c.Total = c.Pending + c.Running + c.Completed + c.Failed
	}
	if c.Total > 0 {
		c.FailureRate = float64(c.Failed) / float64(c.Total)
	}
	return c
}
