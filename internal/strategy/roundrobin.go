package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
)

type roundRobinStrategy struct {
	current atomic.Uint64
}

// SelectBackend returns backends[cursor mod len] and advances the cursor in
// one atomic step, so concurrent callers each get a distinct slot.
func (rr *roundRobinStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	n := rr.current.Add(1)

	index := (n - 1) % uint64(len(backends))

	return backends[index]
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
