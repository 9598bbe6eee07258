package automation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository over the
// automation_settings table:
//
//	user_id           TEXT PRIMARY KEY
//	enabled           BOOLEAN NOT NULL
//	frequency_minutes INTEGER NOT NULL
//	last_fetch_at     TIMESTAMPTZ NULL
//	updated_at        TIMESTAMPTZ NOT NULL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL settings repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves the settings of a user.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Settings, error) {
	query := `
		SELECT user_id, enabled, frequency_minutes, last_fetch_at, updated_at
		FROM automation_settings
		WHERE user_id = $1
	`

	var s Settings
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.Enabled,
		&s.FrequencyMinutes,
		&s.LastFetchAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("querying automation settings: %w", err)
	}

	return &s, nil
}

// Upsert creates or replaces the settings of a user.
func (r *PostgresRepository) Upsert(ctx context.Context, s *Settings) error {
	query := `
		INSERT INTO automation_settings (user_id, enabled, frequency_minutes, last_fetch_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			frequency_minutes = EXCLUDED.frequency_minutes,
			last_fetch_at = EXCLUDED.last_fetch_at,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, s.UserID, s.Enabled, s.FrequencyMinutes, s.LastFetchAt); err != nil {
		return fmt.Errorf("upserting automation settings: %w", err)
	}
	return nil
}
