// Package automation exposes per-user automated fetch status and requests
// new runs from the fetch backend, gated by the user's configured frequency.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/gate"
)

// ServiceConfig holds configuration for the automation service.
type ServiceConfig struct {
	// Repository provides user settings (required).
	Repository Repository

	// Publisher sends run requests (required for RequestRun).
	Publisher Publisher

	// BufferMinutes is the gate's recency buffer.
	// Default: gate.DefaultBufferMinutes
	BufferMinutes int

	// Logger for service operations.
	Logger zerolog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Service provides automation status and run requests.
type Service struct {
	repo      Repository
	publisher Publisher
	buffer    int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a new automation service.
func NewService(cfg ServiceConfig) *Service {
	buffer := cfg.BufferMinutes
	if buffer <= 0 {
		buffer = gate.DefaultBufferMinutes
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		buffer:    buffer,
		logger:    cfg.Logger,
		now:       now,
	}
}

// Status returns the user's settings with the gate evaluated at the current time.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := s.evaluate(settings, s.now())
	return &status, nil
}

// SetEnabled switches automation on or off. Switching on is refused with
// ErrNotEligible while the gate is closed; switching off always succeeds.
func (s *Service) SetEnabled(ctx context.Context, userID string, enabled bool) (*Status, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if enabled && settings.FrequencyMinutes <= 0 {
		return nil, ErrInvalidFrequency
	}

	status := s.evaluate(settings, s.now())
	if enabled && !settings.Enabled && !status.Gate.CanFetch {
		return nil, fmt.Errorf("%w: next fetch in %d minutes", ErrNotEligible, status.Gate.MinutesUntilNext)
	}

	settings.Enabled = enabled
	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Bool("enabled", enabled).Msg("automation toggled")

	status = s.evaluate(settings, s.now())
	return &status, nil
}

// RequestRun publishes a run request when the gate is open. It does not
// execute or schedule the fetch itself.
func (s *Service) RequestRun(ctx context.Context, userID string) (*RunRequest, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	state := gate.EvaluateWithBuffer(settings.LastFetchAt, settings.FrequencyMinutes, s.buffer, now)
	if !state.CanFetch {
		return nil, fmt.Errorf("%w: next fetch in %d minutes", ErrNotEligible, state.MinutesUntilNext)
	}

	req := RunRequest{
		ID:          uuid.New().String(),
		UserID:      userID,
		RequestedAt: now,
	}
	if err := s.publisher.Publish(ctx, req); err != nil {
		return nil, fmt.Errorf("requesting run: %w", err)
	}

	return &req, nil
}

func (s *Service) evaluate(settings *Settings, now time.Time) Status {
	state := gate.EvaluateWithBuffer(settings.LastFetchAt, settings.FrequencyMinutes, s.buffer, now)
	return Status{
		Settings:      *settings,
		Gate:          state,
		ToggleEnabled: settings.Enabled || state.CanFetch,
		StatusLine:    state.StatusLine(),
	}
}
