package signal

import (
	"encoding/json"
	"fmt"
	"time"
)

type recoveryWire struct {
	InProgress     count     `json:"in_progress"`
	Pending        count     `json:"pending"`
	Failed         count     `json:"failed"`
	LastRecoveryAt timestamp `json:"last_recovery_at"`
}

// NewRecoverySource creates the cursor recovery status source.
func NewRecoverySource(cfg HTTPSourceConfig) *HTTPSource[RecoveryStatus] {
	cfg.ID = SourceRecovery
	return NewHTTPSource(cfg, normalizeRecovery)
}

func normalizeRecovery(data json.RawMessage, _ time.Time) (RecoveryStatus, error) {
	var wire recoveryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return RecoveryStatus{}, fmt.Errorf("decoding recovery status: %w", err)
	}
	return RecoveryStatus{
		InProgress:     int(wire.InProgress),
		Pending:        int(wire.Pending),
		Failed:         int(wire.Failed),
		LastRecoveryAt: wire.LastRecoveryAt.ptr(),
	}, nil
}
