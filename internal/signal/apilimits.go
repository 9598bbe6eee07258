package signal

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type serviceLimitWire struct {
	Service      string         `json:"service"`
	Available    optionalBool   `json:"available"`
	UsagePercent optionalNumber `json:"usage_percent"`
	Used         count          `json:"used"`
	Limit        count          `json:"limit"`
	ResetAt      timestamp      `json:"reset_at"`
}

type apiLimitsWire struct {
	Services []serviceLimitWire `json:"services"`
}

// NewAPILimitsSource creates the external API availability and usage source.
func NewAPILimitsSource(cfg HTTPSourceConfig) *HTTPSource[APILimits] {
	cfg.ID = SourceAPILimits
	return NewHTTPSource(cfg, normalizeAPILimits)
}

// normalizeAPILimits keeps a missing usage reading as nil. A missing
// availability flag is read as available, so only an explicit false raises
// an unavailability alert.
func normalizeAPILimits(data json.RawMessage, _ time.Time) (APILimits, error) {
	var wire apiLimitsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return APILimits{}, fmt.Errorf("decoding api limits: %w", err)
	}

	limits := APILimits{Services: make([]ServiceLimit, 0, len(wire.Services))}
	for _, s := range wire.Services {
		name := normalizeWord(s.Service)
		if name == "" {
			continue
		}
		limit := ServiceLimit{
			Service:      name,
			Available:    s.Available.or(true),
			UsagePercent: s.UsagePercent.ptr(),
			Used:         int(s.Used),
			Limit:        int(s.Limit),
			ResetAt:      s.ResetAt.ptr(),
		}
		if limit.UsagePercent != nil && *limit.UsagePercent < 0 {
			limit.UsagePercent = nil
		}
		limits.Services = append(limits.Services, limit)
	}

	sort.SliceStable(limits.Services, func(i, j int) bool {
		return limits.Services[i].Service < limits.Services[j].Service
	})

	return limits, nil
}
