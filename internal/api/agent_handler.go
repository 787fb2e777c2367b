package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/mission-control/internal/api/shared"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/service"
	"github.com/phrazzld/mission-control/internal/store"
)

// IdentityFinder resolves a display name to an identity, ignoring case.
type IdentityFinder interface {
	FindByName(ctx context.Context, name string) (*domain.Identity, error)
}

// AgentHandler serves agent mailboxes addressed by name.
type AgentHandler struct {
	identities IdentityFinder
	queue      NotificationQueue
	logger     *slog.Logger
}

// NewAgentHandler creates a new AgentHandler
func NewAgentHandler(identities IdentityFinder, queue NotificationQueue, logger *slog.Logger) *AgentHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AgentHandler")
	}
	return &AgentHandler{
		identities: identities,
		queue:      queue,
		logger:     logger.With(slog.String("component", "agent_handler")),
	}
}

// agentFromPath resolves the {name} parameter and writes a 404 when nobody
// has that name.
func (h *AgentHandler) agentFromPath(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	name := chi.URLParam(r, "name")
	agent, err := h.identities.FindByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			logger.FromContextOrDefault(r.Context(), h.logger).Debug("agent not found",
				slog.String("name", name))
		}
		HandleAPIError(w, r, err, "Failed to resolve agent")
		return nil, false
	}
	return agent, true
}

// GetUnread handles GET /api/agents/{name}/notifications.
func (h *AgentHandler) GetUnread(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.agentFromPath(w, r)
	if !ok {
		return
	}

	rows, err := h.queue.ListPending(r.Context(), service.PendingQuery{RecipientID: &agent.ID, UnreadOnly: true})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to fetch notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AgentNotificationsResponse{
		Agent:         agent.Name,
		Unread:        len(rows),
		Notifications: rows,
	})
}

// MarkRead handles POST /api/agents/{name}/notifications/mark-read. Ids that
// belong to other agents are ignored.
func (h *AgentHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req MarkReadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	agent, ok := h.agentFromPath(w, r)
	if !ok {
		return
	}

	n, err := h.queue.MarkReadBatch(r.Context(), agent.ID, req.NotificationIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MarkReadResponse{
		Success: true,
		Marked:  n,
		Message: fmt.Sprintf("Marked %d notification(s) as read", n),
	})
}
