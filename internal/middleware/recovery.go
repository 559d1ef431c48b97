package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
)

const msgInternalError = "Internal server error"

// Recovery turns a handler panic into a 500 JSON response. http.ErrAbortHandler
// is re-raised so net/http can abort the connection, which is how
// httputil.ReverseProxy reports a broken response body.
func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.Error("Panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())))

				_ = httpserver.WriteError(w, http.StatusInternalServerError, msgInternalError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
