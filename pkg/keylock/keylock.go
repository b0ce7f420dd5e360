// Package keylock serializes work on the same resource key without keeping
// locks around for keys nobody is using.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	mu   chan struct{} // capacity 1; holding the token means holding the lock
	refs int           // holders plus queued waiters, guarded by Registry.mu
}

// Registry hands out per-key mutual exclusion. Entries are created on first
// acquire and removed by the last releaser when no waiter is queued.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire blocks until the lock for key is held and returns its release func.
func (r *Registry) Acquire(key string) (release func()) {
	release, _ = r.AcquireContext(context.Background(), key)
	return release
}

// AcquireContext is Acquire that gives up when ctx is done.
func (r *Registry) AcquireContext(ctx context.Context, key string) (func(), error) {
	e := r.ref(key)
	select {
	case e.mu <- struct{}{}:
	case <-ctx.Done():
		r.unref(key, e)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.mu
			r.unref(key, e)
		})
	}, nil
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) ref(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{mu: make(chan struct{}, 1)}
		r.entries[key] = e
	}
	e.refs++
	return e
}

// unref drops one reference and removes the entry only if the map still
// points at e and nobody else holds or waits on it.
func (r *Registry) unref(key string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 && r.entries[key] == e {
		delete(r.entries, key)
	}
}
