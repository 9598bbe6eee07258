// Package resilience provides the HTTP transport used to reach upstream
// signal endpoints: per-upstream circuit breakers, request timeouts and
// transport-level retries.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for one upstream's circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the upstream in logs and in the Registry.
	Name string

	// MaxRequests is the number of probe requests allowed while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	// Default: 0 (never cleared)
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	// Default: 30 seconds, one refresh interval of the slowest dashboard.
	Timeout time.Duration

	// ReadyToTrip decides when to open the breaker.
	// If nil, DefaultReadyToTrip is used.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker settings used for signal upstreams.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip opens the breaker after at least 5 requests with a
// failure ratio of 50% or more.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// LogStateChanges returns an OnStateChange callback that logs transitions.
func LogStateChanges(logger zerolog.Logger) func(name string, from gobreaker.State, to gobreaker.State) {
	return func(name string, from gobreaker.State, to gobreaker.State) {
		event := logger.Info()
		if to == gobreaker.StateOpen {
			event = logger.Warn()
		}
		event.
			Str("upstream", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker creates a circuit breaker from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = DefaultReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
