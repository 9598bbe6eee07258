package signal

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/provider/resilience"
)

// DefaultPaths are the upstream endpoint paths per source.
var DefaultPaths = map[SourceID]string{
	SourceQueue:        "/admin/queue/summary",
	SourceQuota:        "/admin/quota/usage",
	SourceAPILimits:    "/admin/api-limits",
	SourceSystemHealth: "/admin/system/health",
	SourceCursors:      "/admin/cursors/status",
	SourceCron:         "/admin/cron/history",
	SourceRecovery:     "/admin/cursors/recovery",
}

// FactoryConfig holds configuration shared by every source built by a Factory.
type FactoryConfig struct {
	// BaseURL is the upstream API base URL (required).
	BaseURL string

	// APIKey is sent as a bearer token on every upstream request (optional).
	APIKey string

	// Paths overrides DefaultPaths per source.
	Paths map[SourceID]string

	// Transport is the template for each source's HTTP client. Its Name is
	// replaced with the source id.
	Transport resilience.ClientConfig

	// Registry receives fetch outcomes and the per-source clients.
	Registry *resilience.Registry

	// CursorStaleAge is the age after which a cursor is stale.
	CursorStaleAge time.Duration

	// CronOverdueGrace is how late a cron run may be before it is overdue.
	CronOverdueGrace time.Duration

	// Logger for source operations.
	Logger zerolog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Factory builds sources. Sources with the same id share one client, so a
// source used by several dashboards has one circuit breaker.
type Factory struct {
	cfg     FactoryConfig
	mu      sync.Mutex
	clients map[SourceID]*resilience.Client
}

// NewFactory creates a source factory.
func NewFactory(cfg FactoryConfig) *Factory {
	if cfg.Registry == nil {
		cfg.Registry = resilience.NewRegistry()
	}
	return &Factory{
		cfg:     cfg,
		clients: make(map[SourceID]*resilience.Client),
	}
}

// Registry returns the registry the factory's sources report into.
func (f *Factory) Registry() *resilience.Registry {
	return f.cfg.Registry
}

// Build creates one source per id, in the given order.
func (f *Factory) Build(ids []SourceID) ([]Source, error) {
	sources := make([]Source, 0, len(ids))
	for _, id := range ids {
		src, err := f.Source(id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Source creates the source for id.
func (f *Factory) Source(id SourceID) (Source, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}

	path, ok := f.cfg.Paths[id]
	if !ok {
		path = DefaultPaths[id]
	}

	cfg := HTTPSourceConfig{
		ID:       id,
		BaseURL:  f.cfg.BaseURL,
		Path:     path,
		Client:   f.client(id),
		Registry: f.cfg.Registry,
		Logger:   f.cfg.Logger,
		Now:      f.cfg.Now,
	}

	switch id {
	case SourceQueue:
		return NewQueueSource(cfg), nil
	case SourceQuota:
		return NewQuotaSource(cfg), nil
	case SourceAPILimits:
		return NewAPILimitsSource(cfg), nil
	case SourceSystemHealth:
		return NewSystemHealthSource(cfg), nil
	case SourceCursors:
		return NewCursorSource(cfg, f.cfg.CursorStaleAge), nil
	case SourceCron:
		return NewCronSource(cfg, f.cfg.CronOverdueGrace), nil
	case SourceRecovery:
		return NewRecoverySource(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
}

func (f *Factory) client(id SourceID) *resilience.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[id]; ok {
		return c
	}

	clientCfg := f.cfg.Transport
	clientCfg.Name = string(id)
	if clientCfg.CircuitBreaker != nil {
		cb := *clientCfg.CircuitBreaker
		cb.Name = string(id)
		if cb.OnStateChange == nil {
			cb.OnStateChange = resilience.LogStateChanges(f.cfg.Logger)
		}
		clientCfg.CircuitBreaker = &cb
	} else {
		cb := resilience.DefaultCircuitBreakerConfig(string(id))
		cb.OnStateChange = resilience.LogStateChanges(f.cfg.Logger)
		clientCfg.CircuitBreaker = &cb
	}
	if f.cfg.APIKey != "" {
		header := clientCfg.Header.Clone()
		if header == nil {
			header = http.Header{}
		}
		header.Set("Authorization", "Bearer "+f.cfg.APIKey)
		clientCfg.Header = header
	}

	c := resilience.NewClient(clientCfg)
	f.clients[id] = c
	f.cfg.Registry.Register(string(id), c)
	return c
}
