package loadbalancer_test

import (
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/rr-balancer/internal/strategy"
)

type countingStrategy struct {
	inner strategy.Strategy
	calls int
}

func (c *countingStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	c.calls++
	return c.inner.SelectBackend(backends)
}

type nilStrategy struct{}

func (nilStrategy) SelectBackend([]*backend.Backend) *backend.Backend { return nil }

var _ = Describe("LoadBalancer", func() {
	var (
		lb       *loadbalancer.LoadBalancer
		registry *backend.Registry
		strat    *countingStrategy
	)

	BeforeEach(func() {
		var err error
		registry, err = backend.NewRegistry([]*url.URL{
			mustParseURL("http://localhost:8001"),
			mustParseURL("http://localhost:8002"),
			mustParseURL("http://localhost:8003"),
		})
		Expect(err).NotTo(HaveOccurred())

		strat = &countingStrategy{inner: strategy.NewRoundRobinStrategy()}
		lb = loadbalancer.NewLoadBalancer(registry, strat)
	})

	Describe("Next", func() {
		Context("with all healthy backends", func() {
			It("should rotate through the registry in order", func() {
				for _, want := range []string{
					"http://localhost:8001",
					"http://localhost:8002",
					"http://localhost:8003",
					"http://localhost:8001",
				} {
					b, err := lb.Next()
					Expect(err).NotTo(HaveOccurred())
					Expect(b.String()).To(Equal(want))
				}
			})
		})

		Context("with one unhealthy backend", func() {
			BeforeEach(func() {
				registry.SetHealth("http://localhost:8002", false)
			})

			It("should never return it", func() {
				for i := 0; i < 20; i++ {
					b, err := lb.Next()
					Expect(err).NotTo(HaveOccurred())
					Expect(b.String()).NotTo(Equal("http://localhost:8002"))
				}
			})

			It("should resume returning it after recovery", func() {
				registry.SetHealth("http://localhost:8002", true)

				seen := make(map[string]bool)
				for i := 0; i < 3; i++ {
					b, err := lb.Next()
					Expect(err).NotTo(HaveOccurred())
					seen[b.String()] = true
				}
				Expect(seen).To(HaveKey("http://localhost:8002"))
			})
		})

		Context("with no healthy backends", func() {
			BeforeEach(func() {
				for _, b := range registry.All() {
					registry.SetHealth(b.String(), false)
				}
			})

			It("should return ErrNoHealthyBackend without consulting the strategy", func() {
				b, err := lb.Next()
				Expect(err).To(MatchError(loadbalancer.ErrNoHealthyBackend))
				Expect(b).To(BeNil())
				Expect(strat.calls).To(BeZero())
			})
		})

		Context("with a strategy that returns nil", func() {
			It("should return ErrNilBackend", func() {
				lb = loadbalancer.NewLoadBalancer(registry, nilStrategy{})
				b, err := lb.Next()
				Expect(err).To(MatchError(loadbalancer.ErrNilBackend))
				Expect(b).To(BeNil())
			})
		})
	})

	Describe("Registry", func() {
		It("should expose the registry it balances over", func() {
			Expect(lb.Registry()).To(BeIdenticalTo(registry))
		})
	})
})

func mustParseURL(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}
