package automation

import (
	"errors"
	"time"

	"github.com/mentionwatch/console/internal/gate"
)

// Automation errors.
var (
	ErrSettingsNotFound = errors.New("automation settings not found")
	ErrNotEligible      = errors.New("automated fetch not yet eligible")
	ErrInvalidFrequency = errors.New("frequency must be positive")
)

// Settings is one user's automated fetch configuration.
type Settings struct {
	UserID           string
	Enabled          bool
	FrequencyMinutes int
	LastFetchAt      *time.Time
	UpdatedAt        time.Time
}

// Status is the gate-derived automation status shown next to the toggle.
type Status struct {
	Settings Settings
	Gate     gate.State
	// ToggleEnabled reports whether the toggle control accepts input:
	// switching off is always allowed, switching on only when a fetch may run.
	ToggleEnabled bool
	StatusLine    string
}

// RunRequest asks the fetch backend to run one automated fetch for a user.
type RunRequest struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}
