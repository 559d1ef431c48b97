package handler

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/circuitbreaker"
	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
	"github.com/angeloszaimis/rr-balancer/internal/loadbalancer"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
	"github.com/angeloszaimis/rr-balancer/internal/middleware"
)

const (
	BackendHeader = "X-Backend-Server"

	msgNoHealthyBackend = "No healthy backend servers available"
	msgMethodNotAllowed = "Method not allowed"
	allowedMethods      = "GET, POST, OPTIONS"
)

type LoadBalancerHandler struct {
	logger    *slog.Logger
	balancer  *loadbalancer.LoadBalancer
	status    *StatusHandler
	proxies   map[*backend.Backend]*httputil.ReverseProxy
	collector *metrics.Collector
}

type options struct {
	timeout   time.Duration
	breakers  *circuitbreaker.Registry
	collector *metrics.Collector
}

type Option func(*options)

// WithTimeout bounds the wait for backend response headers. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithCircuitBreakers routes each backend's round trips through its breaker.
func WithCircuitBreakers(r *circuitbreaker.Registry) Option {
	return func(o *options) {
		o.breakers = r
	}
}

func WithCollector(c *metrics.Collector) Option {
	return func(o *options) {
		o.collector = c
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func NewLoadBalancerHandler(logger *slog.Logger, lb *loadbalancer.LoadBalancer, opts ...Option) *LoadBalancerHandler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	h := &LoadBalancerHandler{
		logger:    logger,
		balancer:  lb,
		status:    NewStatusHandler(lb.Registry()),
		proxies:   make(map[*backend.Backend]*httputil.ReverseProxy, lb.Registry().Len()),
		collector: o.collector,
	}

	for _, b := range lb.Registry().All() {
		h.proxies[b] = h.newProxy(b, newTransport(b, o.timeout, o.breakers))
	}

	return h
}

func (h *LoadBalancerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)
	requestID := middleware.RequestIDFromContext(r.Context())

	h.logger.Debug("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", requestID))

	switch {
	case r.Method == http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return

	case r.Method == http.MethodGet && r.URL.Path == StatusPath:
		h.status.ServeHTTP(w, r)
		return

	case r.Method != http.MethodGet && r.Method != http.MethodPost:
		w.Header().Set("Allow", allowedMethods)
		_ = httpserver.WriteError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	nextServer, err := h.balancer.Next()
	if err != nil {
		h.logger.Warn("No healthy backends available",
			slog.String("client", clientIP),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))

		h.collector.Emit(metrics.MetricEvent{Type: metrics.EventNoHealthyBackend})
		_ = httpserver.WriteError(w, http.StatusServiceUnavailable, msgNoHealthyBackend)
		return
	}

	h.forward(w, r, nextServer)
}

func (h *LoadBalancerHandler) forward(w http.ResponseWriter, r *http.Request, target *backend.Backend) {
	h.collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventRequestForwarded,
		Backend: target.String(),
	})

	w.Header().Set(BackendHeader, target.String())

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	h.proxies[target].ServeHTTP(wrapped, r)
	duration := time.Since(start)

	h.collector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Backend:    target.String(),
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})

	h.logger.Info("Forwarded request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("backend", target.String()),
		slog.Int("status", wrapped.statusCode),
		slog.Duration("duration", duration),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// reverse proxy needs for flushing.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
