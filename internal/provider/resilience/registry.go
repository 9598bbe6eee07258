package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// UpstreamHealth is the transport-level health of one upstream endpoint.
type UpstreamHealth struct {
	// Name is the upstream identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is when the upstream last answered successfully.
	LastSuccessAt *time.Time

	// LastFailureAt is when the upstream last failed.
	LastFailureAt *time.Time

	// LastError is the most recent failure message, if any.
	LastError string
}

// IsHealthy reports whether the circuit is closed.
func (h *UpstreamHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports whether the circuit is half-open.
func (h *UpstreamHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// Registry tracks upstream clients and the outcome of their latest calls.
// It is shared by every dashboard so that the ops status endpoint can report
// per-upstream circuit state.
type Registry struct {
	mu        sync.RWMutex
	upstreams map[string]*registeredUpstream
	now       func() time.Time
}

type registeredUpstream struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		upstreams: make(map[string]*registeredUpstream),
		now:       time.Now,
	}
}

// Register adds an upstream client under name. Registering the same name
// again replaces the client and clears its history.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upstreams[name] = &registeredUpstream{client: client}
}

// RecordSuccess records a successful call to the named upstream.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := r.now()
		u.lastSuccessAt = &now
	}
}

// RecordFailure records a failed call to the named upstream.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.upstreams[name]; ok {
		now := r.now()
		u.lastFailureAt = &now
		if err != nil {
			u.lastError = err.Error()
		}
	}
}

// Health returns the health of one upstream, or nil if it is not registered.
func (r *Registry) Health(name string) *UpstreamHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.upstreams[name]
	if !ok {
		return nil
	}
	return u.health(name)
}

// AllHealth returns the health of every registered upstream, sorted by name.
func (r *Registry) AllHealth() []*UpstreamHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*UpstreamHealth, 0, len(r.upstreams))
	for name, u := range r.upstreams {
		all = append(all, u.health(name))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func (u *registeredUpstream) health(name string) *UpstreamHealth {
	h := &UpstreamHealth{
		Name:          name,
		LastSuccessAt: u.lastSuccessAt,
		LastFailureAt: u.lastFailureAt,
		LastError:     u.lastError,
	}
	if u.client != nil {
		h.CircuitState = u.client.CircuitBreakerState()
		h.Counts = u.client.CircuitBreakerCounts()
	}
	return h
}
