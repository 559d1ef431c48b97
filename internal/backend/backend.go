package backend

import (
	"net/url"
	"sync"
)

// Backend is one origin server. The URL never changes after construction;
// only the health flag is mutable.
type Backend struct {
	url       *url.URL
	mutex     sync.RWMutex
	isHealthy bool
}

// New creates a Backend for the given base URL.
// The backend starts in a healthy state.
func New(u *url.URL) *Backend {
	return &Backend{
		url:       u,
		isHealthy: true,
	}
}

// URL returns the backend base URL.
func (b *Backend) URL() *url.URL {
	return b.url
}

// String returns the base URL as configured.
func (b *Backend) String() string {
	return b.url.String()
}

// IsHealthy reports the current health flag.
func (b *Backend) IsHealthy() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.isHealthy
}

// SetHealthy overwrites the health flag.
// Returns true if the status changed, false if it was already in that state.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.isHealthy == healthy {
		return false
	}

	b.isHealthy = healthy
	return true
}
