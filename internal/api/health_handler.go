package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/mission-control/internal/api/shared"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	db     Pinger
	conns  ConnectionCounter
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil, in which case
// only the process itself is reported.
func NewHealthHandler(db Pinger, conns ConnectionCounter, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for HealthHandler")
	}
	return &HealthHandler{db: db, conns: conns, logger: logger.With(slog.String("component", "health_handler"))}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.FromContextOrDefault(r.Context(), h.logger).Warn("health check failed", redact.ErrorAttr(err))
			shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	resp := HealthResponse{Status: "ok"}
	if h.conns != nil {
		resp.Connections = h.conns.Count()
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
