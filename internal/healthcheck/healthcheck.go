package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 2 * time.Second
	DefaultPath     = "/"
)

// Monitor probes every backend in a registry on a fixed schedule.
// A backend is healthy iff GET <base><path> answers 200 within the timeout.
type Monitor struct {
	registry  *backend.Registry
	client    *http.Client
	interval  time.Duration
	path      string
	logger    *slog.Logger
	collector *metrics.Collector
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.client.Timeout = d
		}
	}
}

func WithPath(path string) Option {
	return func(m *Monitor) {
		if path != "" {
			m.path = path
		}
	}
}

// WithCollector reports health flags to the metrics pipeline.
func WithCollector(c *metrics.Collector) Option {
	return func(m *Monitor) {
		m.collector = c
	}
}

func NewMonitor(registry *backend.Registry, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		registry: registry,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		interval: DefaultInterval,
		path:     DefaultPath,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run probes immediately and then on every tick until ctx is cancelled.
// It is meant to be started once, in its own goroutine, at process startup.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Health monitor started",
		slog.Duration("interval", m.interval),
		slog.Duration("timeout", m.client.Timeout),
		slog.Int("backends", m.registry.Len()))

	for _, b := range m.registry.All() {
		m.collector.Emit(metrics.MetricEvent{
			Type:    metrics.EventHealthChanged,
			Backend: b.String(),
			Healthy: b.IsHealthy(),
		})
	}

	m.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health monitor stopped")
			return

		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll runs one probe cycle. Probes run concurrently; a slow or failing
// backend never delays the others.
func (m *Monitor) CheckAll(ctx context.Context) {
	var g errgroup.Group

	for _, b := range m.registry.All() {
		g.Go(func() error {
			m.check(ctx, b)
			return nil
		})
	}

	_ = g.Wait()
}

func (m *Monitor) check(ctx context.Context, b *backend.Backend) {
	healthy := m.probe(ctx, b)
	if ctx.Err() != nil {
		return
	}

	if !m.registry.SetHealth(b.String(), healthy) {
		return
	}

	m.collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventHealthChanged,
		Backend: b.String(),
		Healthy: healthy,
	})

	if healthy {
		m.logger.Info("Server is back up",
			slog.String("server", b.String()))
	} else {
		m.logger.Warn("Server is down",
			slog.String("server", b.String()))
	}
}

func (m *Monitor) probe(ctx context.Context, b *backend.Backend) bool {
	probeURL := b.URL().JoinPath(m.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	if err != nil {
		m.logger.Debug("Failed to build probe",
			slog.String("server", b.String()),
			slog.String("error", err.Error()))
		return false
	}

	res, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug("Probe failed",
			slog.String("server", b.String()),
			slog.String("error", err.Error()))
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode == http.StatusOK
}
