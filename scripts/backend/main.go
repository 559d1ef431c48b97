// Backend is a demo echo server to put behind the load balancer.
//
// Usage:
//
//	go run ./scripts/backend -port 8001 -name "Backend 1"
//
// GET answers {"server": "<name>"}. POST answers with the raw request body
// echoed back as a string under "data".
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
	"github.com/angeloszaimis/rr-balancer/pkg/logger"
)

type postResponse struct {
	Server  string `json:"server"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func newEchoHandler(name string, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info("request", slog.String("method", r.Method), slog.String("path", r.URL.Path))

		switch r.Method {
		case http.MethodGet:
			_ = httpserver.WriteJSON(w, http.StatusOK, map[string]string{"server": name})

		case http.MethodPost:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				_ = httpserver.WriteError(w, http.StatusBadRequest, "could not read body")
				return
			}
			_ = httpserver.WriteJSON(w, http.StatusOK, postResponse{
				Server:  name,
				Message: "POST request received",
				Data:    string(body),
			})

		default:
			w.Header().Set("Allow", "GET, POST")
			_ = httpserver.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
}

func main() {
	port := flag.Int("port", 8001, "port to listen on")
	name := flag.String("name", "", `server name reported in responses (default "Backend <port>")`)
	flag.Parse()

	if *name == "" {
		*name = fmt.Sprintf("Backend %d", *port)
	}

	log := logger.New("info", false, "dev").With(slog.String("server", *name))

	srv, err := httpserver.New(fmt.Sprintf(":%d", *port), newEchoHandler(*name, log))
	if err != nil {
		log.Error("invalid address", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("backend running", slog.Int("port", *port))
	if err := srv.Start(); err != nil {
		log.Error("server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
