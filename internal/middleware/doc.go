// Package middleware provides the http.Handler wrappers that sit in front of
// the load balancer handler: panic recovery, request IDs, CORS headers and
// an optional inbound rate limit.
//
// Every constructor returns func(http.Handler) http.Handler; Chain composes
// them so that the first argument is the outermost wrapper.
package middleware
