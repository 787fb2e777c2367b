package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/api/shared"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/service"
)

// NotificationQueue is the mailbox surface the notification endpoints use.
type NotificationQueue interface {
	Enqueue(ctx context.Context, req service.EnqueueRequest) (*domain.Notification, error)
	ListForIdentifier(ctx context.Context, identifier string, unreadOnly bool, limit int) ([]domain.PendingNotification, error)
	ListPending(ctx context.Context, query service.PendingQuery) ([]domain.PendingNotification, error)
	PendingSummary(ctx context.Context) (service.Summary, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkReadBatch(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

// NotificationHandler handles mailbox HTTP requests
type NotificationHandler struct {
	queue  NotificationQueue
	logger *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(queue NotificationQueue, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}
	return &NotificationHandler{
		queue:  queue,
		logger: logger.With(slog.String("component", "notification_handler")),
	}
}

// ListNotifications handles GET /api/notifications?user_id=&unread_only=&limit=.
// user_id is either an identity id or a display name.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := getLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))

	rows, err := h.queue.ListForIdentifier(r.Context(), r.URL.Query().Get("user_id"), unreadOnly, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to fetch notifications")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NotificationListResponse{Notifications: rows})
}

// CreateNotification handles POST /api/notifications.
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	n, err := h.queue.Enqueue(r.Context(), service.EnqueueRequest{
		RecipientID: req.UserID,
		NotificationTemplate: service.NotificationTemplate{
			Kind:     domain.NotificationKind(req.Type),
			Title:    req.Title,
			Body:     req.Message,
			Metadata: req.Metadata,
		},
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create notification")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", n.RecipientID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, NotificationResponse{Notification: n})
}

// UpdateNotifications handles PATCH /api/notifications: mark one notification
// read, or every notification of a user when mark_all is set.
func (h *NotificationHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var req UpdateNotificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	switch {
	case req.MarkAll && req.UserID != uuid.Nil:
		n, err := h.queue.MarkAllRead(r.Context(), req.UserID)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to update notifications")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, MarkReadResponse{
			Success: true,
			Marked:  n,
			Message: "All notifications marked as read",
		})
	case req.NotificationID != uuid.Nil:
		if err := h.queue.MarkRead(r.Context(), req.NotificationID); err != nil {
			HandleAPIError(w, r, err, "Failed to update notification")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, MarkReadResponse{Success: true, Marked: 1})
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "notification_id or (mark_all + user_id) required")
	}
}

// DeliveryStatus handles POST /api/notifications/deliver. Agents pick up
// notifications when they poll; this only reports the unread backlog.
func (h *NotificationHandler) DeliveryStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.queue.PendingSummary(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to fetch notifications")
		return
	}

	msg := "No pending notifications"
	if summary.Pending > 0 {
		msg = fmt.Sprintf("%d notification(s) waiting to be picked up by agents during heartbeat", summary.Pending)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DeliveryStatusResponse{Summary: summary, Message: msg})
}

// DescribeDelivery handles GET /api/notifications/deliver.
func (h *NotificationHandler) DescribeDelivery(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, EndpointDescription{
		Endpoint:    "/api/notifications/deliver",
		Method:      http.MethodPost,
		Description: "Returns count of pending notifications. Agents poll during heartbeat.",
		Status:      "online",
	})
}
