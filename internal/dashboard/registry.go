package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Registry holds the configured dashboards in registration order.
type Registry struct {
	mu         sync.RWMutex
	dashboards map[string]*Dashboard
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dashboards: make(map[string]*Dashboard)}
}

// Add registers d. IDs must be unique.
func (r *Registry) Add(d *Dashboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dashboards[d.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, d.ID())
	}
	r.dashboards[d.ID()] = d
	r.order = append(r.order, d.ID())
	return nil
}

// Get returns the dashboard with id.
func (r *Registry) Get(id string) (*Dashboard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dashboards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// List returns every dashboard in registration order.
func (r *Registry) List() []*Dashboard {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Dashboard, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.dashboards[id])
	}
	return out
}

// Run runs every dashboard's controller until ctx is done and waits for all
// of them to stop.
func (r *Registry) Run(ctx context.Context) error {
	dashboards := r.List()

	var wg sync.WaitGroup
	for _, d := range dashboards {
		wg.Add(1)
		go func(d *Dashboard) {
			defer wg.Done()
			_ = d.Run(ctx) //nolint:errcheck // returns ctx.Err() on shutdown
		}(d)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close detaches every dashboard from its controller.
func (r *Registry) Close() {
	for _, d := range r.List() {
		d.Close()
	}
}
