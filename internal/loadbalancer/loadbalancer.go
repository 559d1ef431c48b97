package loadbalancer

import (
	"errors"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/strategy"
)

var (
	ErrNoHealthyBackend = errors.New("no healthy backends")
	ErrNilBackend       = errors.New("strategy returned nil backend")
)

type LoadBalancer struct {
	registry *backend.Registry
	strategy strategy.Strategy
}

func NewLoadBalancer(registry *backend.Registry, strategy strategy.Strategy) *LoadBalancer {
	return &LoadBalancer{
		registry: registry,
		strategy: strategy,
	}
}

// Next picks the backend for one request from the current healthy subset.
// The strategy is not consulted when nothing is healthy.
func (lb *LoadBalancer) Next() (*backend.Backend, error) {
	healthy := lb.registry.Healthy()
	if len(healthy) == 0 {
		return nil, ErrNoHealthyBackend
	}

	chosen := lb.strategy.SelectBackend(healthy)
	if chosen == nil {
		return nil, ErrNilBackend
	}

	return chosen, nil
}

func (lb *LoadBalancer) Registry() *backend.Registry {
	return lb.registry
}
