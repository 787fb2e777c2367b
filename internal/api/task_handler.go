package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/api/shared"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/service"
)

// SubscriptionRegistry manages thread subscriptions.
type SubscriptionRegistry interface {
	Subscribe(ctx context.Context, threadID, identityID uuid.UUID) (bool, error)
	Unsubscribe(ctx context.Context, threadID, identityID uuid.UUID) error
	ListSubscribers(ctx context.Context, threadID uuid.UUID) ([]domain.Subscriber, error)
}

// CommentPoster posts and lists thread comments.
type CommentPoster interface {
	PostComment(ctx context.Context, threadID, authorID uuid.UUID, message string) (*service.CommentResult, error)
	ListComments(ctx context.Context, threadID uuid.UUID) ([]domain.Comment, error)
}

// AssignmentHooks runs the assignment and completion side effects.
type AssignmentHooks interface {
	Assign(ctx context.Context, threadID uuid.UUID, assigneeName string) (*service.AssignmentResult, error)
	Complete(ctx context.Context, threadID uuid.UUID, actorName string) (*service.CompletionResult, error)
}

// TaskHandler handles thread subscriptions, comments and lifecycle hooks.
type TaskHandler struct {
	registry    SubscriptionRegistry
	comments    CommentPoster
	assignments AssignmentHooks
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(
	registry SubscriptionRegistry,
	comments CommentPoster,
	assignments AssignmentHooks,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		registry:    registry,
		comments:    comments,
		assignments: assignments,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// Subscribe handles POST /api/tasks/subscribe.
func (h *TaskHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.Action == ActionUnsubscribe {
		if err := h.registry.Unsubscribe(r.Context(), req.TaskID, req.AgentID); err != nil {
			HandleAPIError(w, r, err, "Failed to unsubscribe")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, SubscribeResponse{
			Success: true,
			Action:  "unsubscribed",
			Message: "Unsubscribed from task thread",
		})
		return
	}

	created, err := h.registry.Subscribe(r.Context(), req.TaskID, req.AgentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to subscribe")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SubscribeResponse{
		Success: true,
		Action:  "subscribed",
		Created: created,
		Message: "Subscribed to task thread",
	})
}

// ListSubscribers handles GET /api/tasks/subscribe?task_id=.
func (h *TaskHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	taskID, err := getQueryUUID(r, "task_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	subs, err := h.registry.ListSubscribers(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to fetch subscribers")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SubscribersResponse{
		TaskID:      taskID,
		Count:       len(subs),
		Subscribers: toSubscriberResponses(subs),
	})
}

// PostComment handles POST /api/tasks/comments.
func (h *TaskHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.comments.PostComment(r.Context(), req.TaskID, req.AuthorID, req.Message)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create comment")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("comment posted",
		slog.String("task_id", req.TaskID.String()),
		slog.Int("subscribers_notified", result.SubscribersNotified))
	shared.RespondWithJSON(w, r, http.StatusOK, CommentResponse{Success: true, CommentResult: result})
}

// ListComments handles GET /api/tasks/comments?task_id=.
func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	taskID, err := getQueryUUID(r, "task_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	comments, err := h.comments.ListComments(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to fetch comments")
		return
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CommentsResponse{TaskID: taskID, Comments: comments})
}

// Assign handles POST /api/tasks/{id}/assignment. An assignee that matches
// nobody is not an error; the response reports assigned=false.
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req AssignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.assignments.Assign(r.Context(), taskID, req.Assignee)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to assign task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Complete handles POST /api/tasks/{id}/completion.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req CompletionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.assignments.Complete(r.Context(), taskID, req.Actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
