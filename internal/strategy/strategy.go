package strategy

import (
	"github.com/angeloszaimis/rr-balancer/internal/backend"
)

// Strategy picks a backend from a non-empty healthy subset.
// Implementations return nil when given an empty slice.
type Strategy interface {
	SelectBackend(backends []*backend.Backend) *backend.Backend
}
