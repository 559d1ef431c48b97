package backend

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
)

var (
	ErrNoBackends       = errors.New("at least one backend is required")
	ErrDuplicateBackend = errors.New("duplicate backend url")
)

// Registry is the ordered, fixed set of backends with O(1) lookup by URL.
//
// The set of URLs is decided at construction and never changes. Health flags
// are written through SetHealth and read through Healthy and Snapshot, which
// copy under the lock so callers never observe a half-built slice.
type Registry struct {
	mutex    sync.RWMutex
	backends []*Backend
	byURL    map[string]*Backend
}

// NewRegistry builds a registry from base URLs, preserving their order.
func NewRegistry(urls []*url.URL) (*Registry, error) {
	if len(urls) == 0 {
		return nil, ErrNoBackends
	}

	r := &Registry{
		backends: make([]*Backend, 0, len(urls)),
		byURL:    make(map[string]*Backend, len(urls)),
	}

	for _, u := range urls {
		key := u.String()
		if _, exists := r.byURL[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBackend, key)
		}

		b := New(u)
		r.backends = append(r.backends, b)
		r.byURL[key] = b
	}

	return r, nil
}

// All returns every backend in registry order.
func (r *Registry) All() []*Backend {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make([]*Backend, len(r.backends))
	copy(all, r.backends)
	return all
}

// Len returns the number of configured backends.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.backends)
}

// Lookup finds a backend by its base URL.
func (r *Registry) Lookup(rawURL string) (*Backend, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	b, ok := r.byURL[rawURL]
	return b, ok
}

// Healthy returns the backends currently marked healthy, in registry order.
func (r *Registry) Healthy() []*Backend {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	healthy := make([]*Backend, 0, len(r.backends))
	for _, b := range r.backends {
		if b.IsHealthy() {
			healthy = append(healthy, b)
		}
	}

	return healthy
}

// Snapshot returns a copy of every health flag keyed by base URL.
func (r *Registry) Snapshot() map[string]bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snap := make(map[string]bool, len(r.backends))
	for _, b := range r.backends {
		snap[b.String()] = b.IsHealthy()
	}

	return snap
}

// SetHealth overwrites the health flag of the backend with the given URL and
// reports whether it changed. Writing an unknown URL is ignored and reports
// false; callers only ever pass URLs obtained from this registry.
func (r *Registry) SetHealth(rawURL string, healthy bool) (changed bool) {
	b, ok := r.Lookup(rawURL)
	if !ok {
		return false
	}

	return b.SetHealthy(healthy)
}
