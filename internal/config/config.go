// Package config loads process configuration from the environment and the
// dashboard policy from a YAML file.
package config

import (
	"errors"
	"os"
	"strings"
)

// ErrInvalidConfig is returned when configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Automation settings stores.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds process configuration read from the environment.
type Config struct {
	Port         string
	Environment  string
	OTelEnabled  bool
	OTLPEndpoint string

	UpstreamBaseURL string
	UpstreamAPIKey  string
	PolicyFile      string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	PubSubProjectID           string
	PubSubRefreshSubscription string
	PubSubAutomationTopic     string

	// AutomationStore selects the settings repository: postgres or memory.
	AutomationStore string
}

// FromEnv reads Config from environment variables, applying defaults.
func FromEnv() Config {
	return Config{
		Port:                      getEnvOrDefault("APP_PORT", "8080"),
		Environment:               getEnvOrDefault("APP_ENV", "development"),
		OTelEnabled:               os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:              getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		UpstreamBaseURL:           getEnvOrDefault("UPSTREAM_BASE_URL", "http://localhost:3000/api"),
		UpstreamAPIKey:            os.Getenv("UPSTREAM_API_KEY"),
		PolicyFile:                os.Getenv("POLICY_FILE"),
		JWTSigningKey:             os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:                 os.Getenv("JWT_ISSUER"),
		JWTAudience:               os.Getenv("JWT_AUDIENCE"),
		PubSubProjectID:           os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubRefreshSubscription: os.Getenv("PUBSUB_REFRESH_SUBSCRIPTION"),
		PubSubAutomationTopic:     os.Getenv("PUBSUB_AUTOMATION_TOPIC"),
		AutomationStore:           strings.ToLower(getEnvOrDefault("AUTOMATION_STORE", StorePostgres)),
	}
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// PubSubEnabled reports whether a Pub/Sub project is configured.
func (c Config) PubSubEnabled() bool {
	return c.PubSubProjectID != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
