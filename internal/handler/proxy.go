package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/circuitbreaker"
	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
	"github.com/angeloszaimis/rr-balancer/internal/metrics"
	"github.com/angeloszaimis/rr-balancer/internal/middleware"
)

const msgBackendUnreachable = "Could not reach backend server: "

// The CORS middleware owns these; backend values would duplicate them.
var corsHeaders = []string{
	middleware.HeaderAllowOrigin,
	middleware.HeaderAllowMethods,
	middleware.HeaderAllowHeaders,
}

// newTransport returns the outbound transport for one backend. A zero
// timeout leaves the round trip unbounded.
func newTransport(b *backend.Backend, timeout time.Duration, breakers *circuitbreaker.Registry) http.RoundTripper {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = timeout

	if breakers == nil {
		return base
	}

	return circuitbreaker.NewTransport(base, breakers.GetBreaker(b.String()))
}

// newProxy builds the reverse proxy for one backend. The inbound path and raw
// query are appended to the backend base URL unchanged; method, body and
// headers (Content-Type included) pass through.
func (h *LoadBalancerHandler) newProxy(b *backend.Backend, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(b.URL())
			// SetURL only sees the query after unparsable parameters were
			// dropped; forward the raw inbound one instead.
			pr.Out.URL.RawQuery = joinQuery(b.URL().RawQuery, pr.In.URL.RawQuery)
			pr.SetXForwarded()
		},
		Transport: transport,
		ModifyResponse: func(res *http.Response) error {
			for _, k := range corsHeaders {
				res.Header.Del(k)
			}
			res.Header.Set("Content-Type", httpserver.ContentTypeJSON)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			requestID := middleware.RequestIDFromContext(r.Context())

			// A caller hanging up says nothing about the backend.
			if errors.Is(err, context.Canceled) || r.Context().Err() != nil {
				h.logger.Debug("Client went away before backend answered",
					slog.String("backend", b.String()),
					slog.String("request_id", requestID))
			} else {
				h.logger.Warn("Could not reach backend",
					slog.String("backend", b.String()),
					slog.String("request_id", requestID),
					slog.String("error", err.Error()))

				h.collector.Emit(metrics.MetricEvent{
					Type:    metrics.EventBackendUnreachable,
					Backend: b.String(),
				})
			}

			_ = httpserver.WriteError(w, http.StatusBadGateway, msgBackendUnreachable+err.Error())
		},
	}
}

func joinQuery(base, in string) string {
	if base == "" || in == "" {
		return base + in
	}
	return base + "&" + in
}
