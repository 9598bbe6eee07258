package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined transport errors.
var (
	// ErrCircuitOpen is returned when the upstream's circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// ClientConfig holds configuration for the upstream HTTP client.
type ClientConfig struct {
	// Name identifies the upstream for circuit breaker naming.
	Name string

	// Timeout bounds each individual HTTP attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retries.
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval.
	// Default: 2 seconds
	MaxInterval time.Duration

	// Header is added to every outgoing request (e.g. an API key).
	Header http.Header

	// CircuitBreaker configures the breaker. If nil, DefaultCircuitBreakerConfig is used.
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultClientConfig returns the transport defaults for a signal upstream.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		CircuitBreaker:  &cb,
	}
}

// Client is an HTTP client guarded by a circuit breaker with bounded retries.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new upstream client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}

	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker[*http.Response](cbConfig), //nolint:bodyclose // type param, not response
		config:         cfg,
	}
}

// Name returns the upstream name the client was configured with.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes req through the circuit breaker, retrying network errors and
// 5xx responses with exponential backoff. 4xx responses are returned as-is.
// An open breaker fails fast with ErrCircuitOpen.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by MaxRetries instead

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response
	operation := func() error {
		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			attempt := req.Clone(ctx)
			for key, values := range c.config.Header {
				for _, v := range values {
					attempt.Header.Add(key, v)
				}
			}

			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				if lastResp != nil {
					lastResp.Body.Close()
				}
				lastResp = resp
			}
			return err
		}

		if lastResp != nil {
			lastResp.Body.Close()
		}
		lastResp = resp
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		// A 5xx that exhausted retries is still a response the caller can inspect.
		var serverErr *ServerError
		if lastResp != nil && errors.As(err, &serverErr) {
			return lastResp, nil
		}
		if lastResp != nil {
			lastResp.Body.Close()
		}
		return nil, err
	}

	return lastResp, nil
}

// ServerError represents an HTTP 5xx upstream response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current breaker counts.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
