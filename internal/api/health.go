package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nexuslab/nexus/internal/log"
)

// Pinger reports vector-store connectivity. Implemented by knowledge.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Configurable reports whether a provider chain has credentials available.
// Implemented by llm.Chain.
type Configurable interface {
	Configured() bool
}

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	StoreConnected   bool `json:"store_connected"`
	ChatConfigured   bool `json:"chat_configured"`
	SearchConfigured bool `json:"search_configured"`
}

// healthHandler reports dependency status.
type healthHandler struct {
	store  Pinger // nil when the store was unreachable at startup
	chat   Configurable
	search Configurable
	logger log.Logger
}

// status handles GET /api/v1/health.
func (h *healthHandler) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	connected := false
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("store health check failed", "error", err)
		} else {
			connected = true
		}
	}

	writeJSON(w, http.StatusOK, HealthStatus{
		StoreConnected:   connected,
		ChatConfigured:   h.chat.Configured(),
		SearchConfigured: h.search.Configured(),
	})
}

// liveness is the bare process-alive probe, registered outside the
// middleware stack.
func liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
