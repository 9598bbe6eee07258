// Package signal fetches upstream health signals and normalizes each one into
// a Snapshot. A source never returns an error: every transport, envelope or
// decoding failure is folded into a snapshot with OK set to false.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/provider/resilience"
)

// maxEnvelopeBytes bounds how much of an upstream body is read.
const maxEnvelopeBytes = 4 << 20

// Source produces one snapshot per call. Fetch must not panic and must not
// block past ctx.
type Source interface {
	ID() SourceID
	Fetch(ctx context.Context) Snapshot
}

// Normalizer converts the envelope's data field into a typed payload.
// now is the fetch time, used for age-based derivations.
type Normalizer[T any] func(data json.RawMessage, now time.Time) (T, error)

// HTTPSourceConfig holds configuration for an HTTP-backed source.
type HTTPSourceConfig struct {
	// ID is the source identifier. Set by the per-source constructors.
	ID SourceID

	// BaseURL is the upstream API base URL (required).
	BaseURL string

	// Path is the endpoint path under BaseURL (required).
	Path string

	// Client is the transport. If nil, a resilient client with defaults is used.
	Client *resilience.Client

	// Registry receives the outcome of every fetch (optional).
	Registry *resilience.Registry

	// Logger for fetch failures.
	Logger zerolog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// envelope is the upstream response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// HTTPSource reads one signal from a JSON envelope endpoint.
type HTTPSource[T any] struct {
	id        SourceID
	url       string
	client    *resilience.Client
	registry  *resilience.Registry
	logger    zerolog.Logger
	now       func() time.Time
	normalize Normalizer[T]
}

// NewHTTPSource creates a source that decodes the envelope's data with normalize.
func NewHTTPSource[T any](cfg HTTPSourceConfig, normalize Normalizer[T]) *HTTPSource[T] {
	client := cfg.Client
	if client == nil {
		client = resilience.NewClient(resilience.DefaultClientConfig(string(cfg.ID)))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &HTTPSource[T]{
		id:        cfg.ID,
		url:       strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Path, "/"),
		client:    client,
		registry:  cfg.Registry,
		logger:    cfg.Logger.With().Str("source", string(cfg.ID)).Logger(),
		now:       now,
		normalize: normalize,
	}
}

// ID returns the source identifier.
func (s *HTTPSource[T]) ID() SourceID {
	return s.id
}

// Fetch issues one read against the upstream and returns its snapshot.
func (s *HTTPSource[T]) Fetch(ctx context.Context) (snap Snapshot) {
	snap = Snapshot{SourceID: s.id, FetchedAt: s.now()}

	defer func() {
		if r := recover(); r != nil {
			snap = s.failed(snap.FetchedAt, fmt.Errorf("%w: %v", ErrUnexpectedPanic, r))
		}
	}()

	data, err := s.read(ctx)
	if err != nil {
		return s.failed(snap.FetchedAt, err)
	}

	fetchedAt := s.now()
	payload, err := s.normalize(data, fetchedAt)
	if err != nil {
		return s.failed(fetchedAt, fmt.Errorf("normalizing data: %w", err))
	}

	if s.registry != nil {
		s.registry.RecordSuccess(string(s.id))
	}

	return Snapshot{
		SourceID:  s.id,
		FetchedAt: fetchedAt,
		OK:        true,
		Payload:   payload,
	}
}

func (s *HTTPSource[T]) read(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstreamFailure, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		// A successful envelope without data normalizes to zero values.
		return json.RawMessage("{}"), nil
	}

	return env.Data, nil
}

func (s *HTTPSource[T]) failed(at time.Time, err error) Snapshot {
	s.logger.Warn().Err(err).Msg("signal fetch failed")
	if s.registry != nil {
		s.registry.RecordFailure(string(s.id), err)
	}
	return Snapshot{
		SourceID:  s.id,
		FetchedAt: at,
		OK:        false,
		Error:     err.Error(),
	}
}
