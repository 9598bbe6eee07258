package signal

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type quotaEntryWire struct {
	UserID     string         `json:"user_id"`
	SourceType string         `json:"source_type"`
	Used       count          `json:"used"`
	Limit      count          `json:"limit"`
	Percentage optionalNumber `json:"percentage"`
}

type quotaWire struct {
	Entries []quotaEntryWire `json:"entries"`
}

// NewQuotaSource creates the per-user quota usage source.
func NewQuotaSource(cfg HTTPSourceConfig) *HTTPSource[QuotaUsage] {
	cfg.ID = SourceQuota
	return NewHTTPSource(cfg, normalizeQuota)
}

func normalizeQuota(data json.RawMessage, _ time.Time) (QuotaUsage, error) {
	var wire quotaWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return QuotaUsage{}, fmt.Errorf("decoding quota usage: %w", err)
	}

	usage := QuotaUsage{Entries: make([]QuotaEntry, 0, len(wire.Entries))}
	for _, e := range wire.Entries {
		if e.UserID == "" || e.SourceType == "" {
			continue
		}
		entry := QuotaEntry{
			UserID:     e.UserID,
			SourceType: normalizeWord(e.SourceType),
			Used:       int(e.Used),
			Limit:      int(e.Limit),
		}
		switch {
		case e.Percentage.valid && e.Percentage.value >= 0:
			entry.Utilization = e.Percentage.value
		case entry.Limit > 0:
			entry.Utilization = float64(entry.Used) / float64(entry.Limit) * 100
		}
		usage.Entries = append(usage.Entries, entry)
	}

	sort.SliceStable(usage.Entries, func(i, j int) bool {
		if usage.Entries[i].UserID != usage.Entries[j].UserID {
			return usage.Entries[i].UserID < usage.Entries[j].UserID
		}
		return usage.Entries[i].SourceType < usage.Entries[j].SourceType
	})

	return usage, nil
}
