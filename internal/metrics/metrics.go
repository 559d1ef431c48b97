package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "lb"

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	responses       *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backendHealthy  *prometheus.GaugeVec
	errors          *prometheus.CounterVec
}

// NewMetrics builds the collectors on a private registry so that several
// instances can coexist, e.g. one per test.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests forwarded to a backend",
			},
			[]string{"backend"},
		),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Total number of backend responses by status code",
			},
			[]string{"backend", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Outbound round-trip latency per backend",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		backendHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_healthy",
				Help:      "Current backend health flag (1=healthy, 0=unhealthy)",
			},
			[]string{"backend"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Requests answered by the load balancer itself, by error kind",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.responses,
		m.requestDuration,
		m.backendHealthy,
		m.errors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, kind := range []EventType{EventNoHealthyBackend, EventBackendUnreachable} {
		m.errors.WithLabelValues(string(kind))
	}

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IncrementRequests(backend string) {
	m.requests.WithLabelValues(backend).Inc()
}

func (m *Metrics) RecordResponse(backend string, duration time.Duration, statusCode int) {
	m.responses.WithLabelValues(backend, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *Metrics) UpdateHealthStatus(backend string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	m.backendHealthy.WithLabelValues(backend).Set(value)
}

func (m *Metrics) RecordError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}
