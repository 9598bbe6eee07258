package automation

import "context"

// Repository defines the interface for automation settings persistence.
type Repository interface {
	// Get retrieves the settings of a user.
	Get(ctx context.Context, userID string) (*Settings, error)

	// Upsert creates or replaces the settings of a user.
	Upsert(ctx context.Context, settings *Settings) error
}
