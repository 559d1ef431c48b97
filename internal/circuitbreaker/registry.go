package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*gobreaker.CircuitBreaker
	threshold uint32
	timeout   time.Duration
	logger    *slog.Logger
}

// NewRegistry creates breakers that open after threshold consecutive
// transport failures and probe again after timeout.
func NewRegistry(threshold int, timeout time.Duration, logger *slog.Logger) *Registry {
	if threshold < 1 {
		threshold = 1
	}

	return &Registry{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		threshold: uint32(threshold),
		timeout:   timeout,
		logger:    logger,
	}
}

func (r *Registry) GetBreaker(backendURL string) *gobreaker.CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[backendURL]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Another goroutine may have created it.
	if cb, exists = r.breakers[backendURL]; exists {
		return cb
	}

	cb = gobreaker.NewCircuitBreaker(r.settings(backendURL))
	r.breakers[backendURL] = cb
	return cb
}

func (r *Registry) settings(name string) gobreaker.Settings {
	threshold := r.threshold

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     r.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller hanging up says nothing about the backend.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.Warn("Circuit breaker state change",
				slog.String("backend", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
}

// Stats returns the state of every breaker created so far.
func (r *Registry) Stats() map[string]gobreaker.State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]gobreaker.State, len(r.breakers))
	for url, cb := range r.breakers {
		stats[url] = cb.State()
	}
	return stats
}
