// Package registry tracks which simulations have an execution in flight in
// this process. It is not durable; the Store remains the source of truth.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Handle is the bookkeeping entry for one in-flight execution.
type Handle struct {
	SimulationID string
	StartedAt    time.Time
}

// Registry is a mutex-guarded map from simulation id to Handle.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Handle
	idle    *sync.Cond
}

// New returns an empty Registry.
func New() *Registry {
	r := &Registry{entries: make(map[string]*Handle)}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// Register adds id. It is a no-op returning the existing handle if id is
// already present.
func (r *Registry) Register(id string) *Handle {
	h, _ := r.TryRegister(id)
	return h
}

// TryRegister adds id and reports whether it was newly added.
func (r *Registry) TryRegister(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.entries[id]; ok {
		return h, false
	}
	h := &Handle{SimulationID: id, StartedAt: time.Now().UTC()}
	r.entries[id] = h
	return h, true
}

// Deregister removes id and reports whether it was present.
func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	if len(r.entries) == 0 {
		r.idle.Broadcast()
	}
	return true
}

// Contains reports whether id has an execution in flight.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Get returns the handle for id, if any.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[id]
	return h, ok
}

// Len returns the number of in-flight executions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the in-flight simulation ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Wait blocks until the registry is empty or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		r.mu.Lock()
		for len(r.entries) > 0 && ctx.Err() == nil {
			r.idle.Wait()
		}
		r.mu.Unlock()
		close(idle)
	}()

	select {
	case <-idle:
		return ctx.Err()
	case <-ctx.Done():
		// Wake the waiter so it observes ctx.Err and exits.
		r.mu.Lock()
		r.idle.Broadcast()
		r.mu.Unlock()
		<-idle
		return ctx.Err()
	}
}
