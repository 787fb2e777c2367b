package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/service"
)

// CreateActivityRequest is the body of POST /api/activities.
type CreateActivityRequest struct {
	Kind        string                  `json:"kind"         validate:"required"`
	Message     string                  `json:"message"      validate:"required"`
	Actor       string                  `json:"actor"        validate:"required"`
	ActorAvatar string                  `json:"actor_avatar"`
	Context     *domain.ActivityContext `json:"context,omitempty"`
}

// ActivityResponse is returned after an activity is published.
type ActivityResponse struct {
	Success  bool             `json:"success"`
	Activity *domain.Activity `json:"activity"`
}

// ActivityStatusResponse describes the live stream.
type ActivityStatusResponse struct {
	Message     string `json:"message"`
	Connections int    `json:"connections"`
}

// CreateNotificationRequest is the body of POST /api/notifications.
type CreateNotificationRequest struct {
	UserID   uuid.UUID                   `json:"user_id"`
	Type     string                      `json:"type"    validate:"required"`
	Title    string                      `json:"title"   validate:"required"`
	Message  string                      `json:"message" validate:"required"`
	Metadata domain.NotificationMetadata `json:"metadata"`
}

// UpdateNotificationRequest is the body of PATCH /api/notifications. Either
// NotificationID or UserID with MarkAll must be set.
type UpdateNotificationRequest struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	MarkAll        bool      `json:"mark_all"`
}

// NotificationResponse wraps a single notification.
type NotificationResponse struct {
	Notification *domain.Notification `json:"notification"`
}

// NotificationListResponse wraps a mailbox listing.
type NotificationListResponse struct {
	Notifications []domain.PendingNotification `json:"notifications"`
}

// MarkReadRequest is the body of POST /api/agents/{name}/notifications/mark-read.
type MarkReadRequest struct {
	NotificationIDs []uuid.UUID `json:"notification_ids" validate:"required,min=1"`
}

// MarkReadResponse reports how many notifications changed.
type MarkReadResponse struct {
	Success bool   `json:"success"`
	Marked  int64  `json:"marked"`
	Message string `json:"message,omitempty"`
}

// DeliveryStatusResponse reports the undelivered backlog.
type DeliveryStatusResponse struct {
	service.Summary
	Message string `json:"message"`
}

// EndpointDescription documents an endpoint for GET probes.
type EndpointDescription struct {
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// AgentNotificationsResponse lists an agent's unread notifications.
type AgentNotificationsResponse struct {
	Agent         string                       `json:"agent"`
	Unread        int                          `json:"unread"`
	Notifications []domain.PendingNotification `json:"notifications"`
}

// Subscription actions
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// SubscribeRequest is the body of POST /api/tasks/subscribe. Action defaults
// to subscribe.
type SubscribeRequest struct {
	TaskID  uuid.UUID `json:"task_id"`
	AgentID uuid.UUID `json:"agent_id"`
	Action  string    `json:"action" validate:"omitempty,oneof=subscribe unsubscribe"`
}

// SubscribeResponse reports the subscription change.
type SubscribeResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// SubscriberResponse is one flattened subscriber row.
type SubscriberResponse struct {
	ID           uuid.UUID `json:"id"`
	SubscribedAt time.Time `json:"subscribed_at"`
	AgentID      uuid.UUID `json:"agent_id"`
	AgentName    string    `json:"agent_name"`
	AgentAvatar  string    `json:"agent_avatar"`
	AgentStatus  string    `json:"agent_status"`
}

// SubscribersResponse lists a thread's subscribers.
type SubscribersResponse struct {
	TaskID      uuid.UUID            `json:"task_id"`
	Count       int                  `json:"count"`
	Subscribers []SubscriberResponse `json:"subscribers"`
}

// CreateCommentRequest is the body of POST /api/tasks/comments.
type CreateCommentRequest struct {
	TaskID   uuid.UUID `json:"task_id"`
	AuthorID uuid.UUID `json:"author_id"`
	Message  string    `json:"message" validate:"required"`
}

// CommentResponse reports a posted comment and its fan-out.
type CommentResponse struct {
	Success bool `json:"success"`
	*service.CommentResult
}

// CommentsResponse lists a thread's comments, oldest first.
type CommentsResponse struct {
	TaskID   uuid.UUID        `json:"task_id"`
	Comments []domain.Comment `json:"comments"`
}

// AssignmentRequest is the body of POST /api/tasks/{id}/assignment.
type AssignmentRequest struct {
	Assignee string `json:"assignee" validate:"required"`
}

// CompletionRequest is the body of POST /api/tasks/{id}/completion.
type CompletionRequest struct {
	Actor string `json:"actor"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func toSubscriberResponses(subs []domain.Subscriber) []SubscriberResponse {
	out := make([]SubscriberResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubscriberResponse{
			ID:           s.SubscriptionID,
			SubscribedAt: s.SubscribedAt,
			AgentID:      s.Identity.ID,
			AgentName:    s.Identity.Name,
			AgentAvatar:  s.Identity.Avatar,
			AgentStatus:  s.Identity.Status,
		})
	}
	return out
}
