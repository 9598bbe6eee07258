package models

import "github.com/mentionwatch/console/internal/gate"

// AutomationStatus is the response of the automation endpoints.
type AutomationStatus struct {
	UserID           string     `json:"userId"`
	Enabled          bool       `json:"enabled"`
	FrequencyMinutes int        `json:"frequencyMinutes"`
	LastFetchAt      *Timestamp `json:"lastFetchAt,omitempty"`
	Gate             gate.State `json:"gate"`
	ToggleEnabled    bool       `json:"toggleEnabled"`
	StatusLine       string     `json:"statusLine"`
}

// SetEnabledRequest is the body of PUT /automation/{userId}/enabled.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// Validate validates the request.
func (r *SetEnabledRequest) Validate() []FieldError {
	if r.Enabled == nil {
		return []FieldError{{Field: "enabled", Message: "enabled is required", Code: "REQUIRED"}}
	}
	return nil
}

// RunAccepted is the response of POST /automation/{userId}/runs.
type RunAccepted struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	RequestedAt Timestamp `json:"requestedAt"`
}
