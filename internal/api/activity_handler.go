package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/mission-control/internal/api/shared"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/service"
)

// ActivityPublisher publishes activities to the board.
type ActivityPublisher interface {
	Publish(ctx context.Context, req service.PublishRequest) (*domain.Activity, error)
}

// ConnectionCounter reports the number of live stream clients.
type ConnectionCounter interface {
	Count() int
}

// ActivityHandler handles activity-related HTTP requests
type ActivityHandler struct {
	publisher ActivityPublisher
	conns     ConnectionCounter
	logger    *slog.Logger
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(publisher ActivityPublisher, conns ConnectionCounter, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ActivityHandler")
	}
	return &ActivityHandler{
		publisher: publisher,
		conns:     conns,
		logger:    logger.With(slog.String("component", "activity_handler")),
	}
}

// CreateActivity handles POST /api/activities.
func (h *ActivityHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	activity, err := h.publisher.Publish(r.Context(), service.PublishRequest{
		Kind:        domain.ActivityKind(req.Kind),
		Message:     req.Message,
		Actor:       req.Actor,
		ActorAvatar: req.ActorAvatar,
		Context:     req.Context,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to publish activity")
		return
	}

	log.Debug("activity published",
		slog.String("activity_id", activity.ID.String()),
		slog.String("kind", string(activity.Kind)))
	shared.RespondWithJSON(w, r, http.StatusOK, ActivityResponse{Success: true, Activity: activity})
}

// GetActivityStatus handles GET /api/activities.
func (h *ActivityHandler) GetActivityStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ActivityStatusResponse{
		Message:     "Activities endpoint - use POST to create new activities",
		Connections: h.conns.Count(),
	})
}
