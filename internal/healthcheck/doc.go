// Package healthcheck implements the periodic liveness probe for backends.
// A single Monitor probes every backend in parallel on a fixed interval and
// writes the results into the backend registry.
package healthcheck
