// Package circuitbreaker guards outbound calls to each backend with a
// sony/gobreaker circuit breaker.
//
// Only transport failures (refused connections, timeouts, protocol errors)
// count against a backend; any HTTP response, whatever its status, is a
// success. While a breaker is open the round trip fails immediately with
// gobreaker.ErrOpenState, which the forwarder reports like any other
// unreachable backend.
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second, logger)
//	transport := circuitbreaker.NewTransport(http.DefaultTransport, registry.GetBreaker("http://localhost:8001"))
package circuitbreaker
