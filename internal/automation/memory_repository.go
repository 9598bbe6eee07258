package automation

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	settings map[string]*Settings
}

// NewInMemoryRepository creates a new in-memory settings repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{settings: make(map[string]*Settings)}
}

// Get retrieves the settings of a user.
func (r *InMemoryRepository) Get(_ context.Context, userID string) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[userID]
	if !ok {
		return nil, ErrSettingsNotFound
	}
	return copySettings(s), nil
}

// Upsert creates or replaces the settings of a user.
func (r *InMemoryRepository) Upsert(_ context.Context, settings *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copySettings(settings)
	stored.UpdatedAt = time.Now()
	r.settings[settings.UserID] = stored
	return nil
}

func copySettings(s *Settings) *Settings {
	c := *s
	if s.LastFetchAt != nil {
		t := *s.LastFetchAt
		c.LastFetchAt = &t
	}
	return &c
}
