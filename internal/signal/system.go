package signal

import (
	"encoding/json"
	"fmt"
	"time"
)

type subsystemWire struct {
	Status         string    `json:"status"`
	Detail         string    `json:"detail"`
	LastActivityAt timestamp `json:"last_activity_at"`
}

type systemHealthWire struct {
	Subsystems     map[string]subsystemWire `json:"subsystems"`
	AutomatedFetch struct {
		LastRunAt        timestamp `json:"last_run_at"`
		FrequencyMinutes count     `json:"frequency_minutes"`
	} `json:"automated_fetch"`
}

// NewSystemHealthSource creates the core subsystem health source.
func NewSystemHealthSource(cfg HTTPSourceConfig) *HTTPSource[SystemHealth] {
	cfg.ID = SourceSystemHealth
	return NewHTTPSource(cfg, normalizeSystemHealth)
}

func normalizeSystemHealth(data json.RawMessage, _ time.Time) (SystemHealth, error) {
	var wire systemHealthWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return SystemHealth{}, fmt.Errorf("decoding system health: %w", err)
	}

	health := SystemHealth{
		Subsystems: make(map[string]SubsystemStatus, len(wire.Subsystems)),
		AutomatedFetch: AutomatedFetch{
			LastRunAt:        wire.AutomatedFetch.LastRunAt.ptr(),
			FrequencyMinutes: int(wire.AutomatedFetch.FrequencyMinutes),
		},
	}
	for name, sub := range wire.Subsystems {
		key := normalizeWord(name)
		if key == "" {
			continue
		}
		health.Subsystems[key] = SubsystemStatus{
			Status:         normalizeWord(sub.Status),
			Detail:         sub.Detail,
			LastActivityAt: sub.LastActivityAt.ptr(),
		}
	}

	return health, nil
}
