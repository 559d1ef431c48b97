// Package handler implements the client-facing side of the load balancer.
//
// LoadBalancerHandler resolves every inbound request to exactly one outcome:
// a 204 CORS preflight, the /status health snapshot, a 405 for unsupported
// methods, a 503 when no backend is healthy, the mirrored backend response,
// or a 502 when the chosen backend cannot be reached. Requests are never
// retried against another backend.
//
// CORS headers are applied by the middleware in front of this handler; the
// proxy strips any CORS headers a backend sends so the policy is not doubled.
package handler
