package handler

import (
	"net/http"

	"github.com/angeloszaimis/rr-balancer/internal/backend"
	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
)

const StatusPath = "/status"

// StatusHandler reports every backend's current health flag as
// {"<url>": <bool>}. It only reads the registry.
type StatusHandler struct {
	registry *backend.Registry
}

func NewStatusHandler(registry *backend.Registry) *StatusHandler {
	return &StatusHandler{registry: registry}
}

func (s *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = httpserver.WriteJSON(w, http.StatusOK, s.registry.Snapshot())
}
