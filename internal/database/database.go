// Package database manages the PostgreSQL pool backing automation settings.
package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// applicationName tags console sessions in pg_stat_activity.
const applicationName = "mentionwatch-console"

// Config holds database connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration

	// ConnectAttempts bounds the pings made before Connect gives up.
	ConnectAttempts uint64
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Host:            getEnvOrDefault("DB_HOST", "localhost"),
		Port:            getIntOrDefault("DB_PORT", 5432),
		User:            getEnvOrDefault("DB_USER", "mentionwatch"),
		Password:        getEnvOrDefault("DB_PASSWORD", "localdev"),
		Database:        getEnvOrDefault("DB_NAME", "mentionwatch"),
		SSLMode:         getEnvOrDefault("DB_SSL_MODE", "disable"),
		MaxConns:        int32(getIntOrDefault("DB_MAX_OPEN_CONNS", 4)), //nolint:gosec // small operator-provided value
		MinConns:        int32(getIntOrDefault("DB_MAX_IDLE_CONNS", 1)), //nolint:gosec // small operator-provided value
		ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnectAttempts: uint64(getIntOrDefault("DB_CONNECT_ATTEMPTS", 5)), //nolint:gosec // negative values fall back below
	}
}

// ConnectionString returns the PostgreSQL connection URL. Credentials are
// escaped.
func (c Config) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect creates a pool and pings it until the database answers or the
// attempts run out.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 && cfg.MinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	attempts := cfg.ConnectAttempts
	if attempts == 0 || attempts > 100 {
		attempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	ping := func() error { return pool.Ping(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// schema holds the tables owned by this service.
const schema = `
CREATE TABLE IF NOT EXISTS automation_settings (
	user_id           TEXT PRIMARY KEY,
	enabled           BOOLEAN NOT NULL DEFAULT FALSE,
	frequency_minutes INTEGER NOT NULL DEFAULT 0,
	last_fetch_at     TIMESTAMPTZ NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the service tables when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
