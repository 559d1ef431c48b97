// Package metrics collects load balancer metrics off the request path.
//
// Handlers and the health monitor emit MetricEvent values into a buffered
// channel without blocking; a single collector goroutine folds them into
// Prometheus collectors registered on a private registry:
//
//   - lb_requests_total{backend}: requests forwarded to a backend
//   - lb_responses_total{backend,code}: responses mirrored back, by status
//   - lb_request_duration_seconds{backend}: outbound round-trip latency
//   - lb_backend_healthy{backend}: last known health flag (1 or 0)
//   - lb_errors_total{kind}: no_healthy_backend and backend_unreachable
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Backend:    "http://localhost:8001",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	http.Handle("/metrics", collector.Handler())
//
// Events that do not fit in the buffer are dropped rather than stalling a
// request. Pending events are drained when the context is cancelled.
package metrics
