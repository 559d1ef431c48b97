package middleware

import (
	"net/http"
	"strings"
)

const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
)

type CORSConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

// DefaultCORSConfig is the permissive policy sent on every response.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}
}

// CORSHeaders returns the header values for cfg, joined once.
func (cfg CORSConfig) CORSHeaders() http.Header {
	h := make(http.Header, 3)
	h.Set(HeaderAllowOrigin, cfg.AllowOrigin)
	h.Set(HeaderAllowMethods, strings.Join(cfg.AllowMethods, ", "))
	h.Set(HeaderAllowHeaders, strings.Join(cfg.AllowHeaders, ", "))
	return h
}

// CORS sets the policy headers before the wrapped handler runs, so they are
// present on every response including errors.
func CORS(cfg CORSConfig) Middleware {
	headers := cfg.CORSHeaders()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header()[k] = v
			}
			next.ServeHTTP(w, r)
		})
	}
}
