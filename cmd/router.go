package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/rr-balancer/config"
	"github.com/angeloszaimis/rr-balancer/internal/circuitbreaker"
	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
	"github.com/angeloszaimis/rr-balancer/internal/middleware"
)

// setupRouter puts the client-facing middleware in front of the balancer.
// Every path belongs to the balancer, so there is no mux here.
func setupRouter(loadBalancerHandler http.Handler, rl config.RateLimitConfig, log *slog.Logger) http.Handler {
	return middleware.Chain(loadBalancerHandler,
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.RateLimit(rl.RequestsPerSecond, rl.Burst, log),
	)
}

// setupAdminRouter serves operator endpoints on the metrics listener.
// /breakers is only registered when circuit breaking is enabled.
func setupAdminRouter(metricsCollector *metrics.Collector, breakers *circuitbreaker.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsCollector.Handler())

	if breakers != nil {
		mux.HandleFunc("GET /breakers", func(w http.ResponseWriter, r *http.Request) {
			states := make(map[string]string)
			for backendURL, state := range breakers.Stats() {
				states[backendURL] = state.String()
			}
			_ = httpserver.WriteJSON(w, http.StatusOK, states)
		})
	}

	return mux
}
