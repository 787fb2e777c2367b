package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/store"
)

const queueService = "notification_queue"

// UnknownRecipient labels pending notifications whose identity no longer exists.
const UnknownRecipient = "unknown"

// NotificationTemplate is the recipient-independent part of a notification.
type NotificationTemplate struct {
	Kind     domain.NotificationKind
	Title    string
	Body     string
	Metadata domain.NotificationMetadata
}

// EnqueueRequest describes one notification for one recipient.
type EnqueueRequest struct {
	RecipientID uuid.UUID
	NotificationTemplate
}

// BulkFailure records a recipient whose notification could not be stored.
type BulkFailure struct {
	RecipientID uuid.UUID
	Err         error
}

// BulkResult is the outcome of EnqueueBulk. Recipients succeed or fail
// independently.
type BulkResult struct {
	Created  []*domain.Notification
	Failures []BulkFailure
}

// Err joins the failures into one error, or returns nil if there were none.
func (r BulkResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("recipient %s: %w", f.RecipientID, f.Err))
	}
	return errors.Join(errs...)
}

// PendingQuery selects notifications for ListPending.
type PendingQuery struct {
	// RecipientID selects one mailbox, newest first. When nil, the system-wide
	// unread set is returned oldest first.
	RecipientID *uuid.UUID
	UnreadOnly  bool
	Limit       int
}

// Summary counts unread notifications system-wide.
type Summary struct {
	Pending     int            `json:"pending"`
	ByRecipient map[string]int `json:"by_agent"`
}

// NotificationQueue is the durable mailbox of per-recipient notifications.
type NotificationQueue struct {
	notifications store.NotificationStore
	identities    store.IdentityStore
	logger        *slog.Logger
}

// NewNotificationQueue creates a NotificationQueue. If logger is nil,
// slog.Default() is used.
func NewNotificationQueue(
	notifications store.NotificationStore,
	identities store.IdentityStore,
	logger *slog.Logger,
) (*NotificationQueue, error) {
	if notifications == nil {
		return nil, nilDependency(queueService, "notifications")
	}
	if identities == nil {
		return nil, nilDependency(queueService, "identities")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationQueue{
		notifications: notifications,
		identities:    identities,
		logger:        logger.With(slog.String("component", queueService)),
	}, nil
}

// WithTx returns a queue whose stores use tx.
func (q *NotificationQueue) WithTx(tx *sqlx.Tx) *NotificationQueue {
	return &NotificationQueue{
		notifications: q.notifications.WithTx(tx),
		identities:    q.identities.WithTx(tx),
		logger:        q.logger,
	}
}

// Enqueue stores one unread, undelivered notification.
func (q *NotificationQueue) Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Notification, error) {
	n, err := domain.NewNotification(req.RecipientID, req.Kind, req.Title, req.Body, req.Metadata)
	if err != nil {
		return nil, err
	}
	if err := q.notifications.Create(ctx, n); err != nil {
		return nil, NewServiceError(queueService, "enqueue", "failed to store notification", err)
	}

	logger.FromContextOrDefault(ctx, q.logger).Debug("notification enqueued",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", n.RecipientID.String()),
		slog.String("type", string(n.Kind)))
	return n, nil
}

// EnqueueBulk stores one notification per recipient. A failure for one
// recipient never prevents the others; failures are reported in the result.
func (q *NotificationQueue) EnqueueBulk(ctx context.Context, recipients []uuid.UUID, tmpl NotificationTemplate) BulkResult {
	var result BulkResult
	if len(recipients) == 0 {
		return result
	}

	log := logger.FromContextOrDefault(ctx, q.logger)
	result.Created = make([]*domain.Notification, 0, len(recipients))
	for _, id := range recipients {
		n, err := q.Enqueue(ctx, EnqueueRequest{RecipientID: id, NotificationTemplate: tmpl})
		if err != nil {
			log.Warn("failed to enqueue notification for recipient",
				redact.ErrorAttr(err),
				slog.String("user_id", id.String()),
				slog.String("type", string(tmpl.Kind)))
			result.Failures = append(result.Failures, BulkFailure{RecipientID: id, Err: err})
			continue
		}
		result.Created = append(result.Created, n)
	}

	log.Debug("bulk enqueue finished",
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Failures)),
		slog.String("type", string(tmpl.Kind)))
	return result
}

// ListPending lists notifications for one recipient or system-wide.
func (q *NotificationQueue) ListPending(ctx context.Context, query PendingQuery) ([]domain.PendingNotification, error) {
	filter := store.NotificationFilter{
		RecipientID: query.RecipientID,
		UnreadOnly:  query.UnreadOnly,
		Limit:       query.Limit,
	}
	if query.RecipientID == nil {
		filter.UnreadOnly = true
		filter.OldestFirst = true
	}

	rows, err := q.notifications.List(ctx, filter)
	if err != nil {
		return nil, NewServiceError(queueService, "list_pending", "failed to list notifications", err)
	}
	return rows, nil
}

// ListForIdentifier lists a mailbox addressed either by identity id or by
// display name. A name that matches nobody yields an empty list.
func (q *NotificationQueue) ListForIdentifier(
	ctx context.Context,
	identifier string,
	unreadOnly bool,
	limit int,
) ([]domain.PendingNotification, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.NewValidationError("user_id", "is required", domain.ErrEmptyContent)
	}

	recipientID, err := uuid.Parse(identifier)
	if err != nil {
		identity, lookupErr := q.identities.FindByName(ctx, identifier)
		if errors.Is(lookupErr, store.ErrIdentityNotFound) {
			logger.FromContextOrDefault(ctx, q.logger).Debug("no identity for mailbox name",
				slog.String("name", identifier))
			return []domain.PendingNotification{}, nil
		}
		if lookupErr != nil {
			return nil, NewServiceError(queueService, "list_for_identifier", "failed to resolve name", lookupErr)
		}
		recipientID = identity.ID
	}

	return q.ListPending(ctx, PendingQuery{RecipientID: &recipientID, UnreadOnly: unreadOnly, Limit: limit})
}

// PendingSummary counts unread notifications grouped by recipient name.
func (q *NotificationQueue) PendingSummary(ctx context.Context) (Summary, error) {
	rows, err := q.ListPending(ctx, PendingQuery{})
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Pending: len(rows), ByRecipient: make(map[string]int)}
	for _, n := range rows {
		name := n.RecipientName
		if name == "" {
			name = UnknownRecipient
		}
		summary.ByRecipient[name]++
	}
	return summary, nil
}

// MarkRead marks one notification read.
func (q *NotificationQueue) MarkRead(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.NewValidationError("notification_id", "is required", domain.ErrInvalidID)
	}
	if err := q.notifications.MarkRead(ctx, id); err != nil {
		return NewServiceError(queueService, "mark_read", "failed to mark notification read", err)
	}
	return nil
}

// MarkReadBatch marks the recipient's listed notifications read and returns how
// many changed. Ids owned by other recipients are ignored.
func (q *NotificationQueue) MarkReadBatch(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, domain.NewValidationError("user_id", "is required", domain.ErrInvalidID)
	}
	if len(ids) == 0 {
		return 0, domain.NewValidationError("notification_ids", "must not be empty", domain.ErrValidation)
	}
	n, err := q.notifications.MarkReadForRecipient(ctx, recipientID, ids)
	if err != nil {
		return 0, NewServiceError(queueService, "mark_read_batch", "failed to mark notifications read", err)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the recipient read.
func (q *NotificationQueue) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, domain.NewValidationError("user_id", "is required", domain.ErrInvalidID)
	}
	n, err := q.notifications.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, NewServiceError(queueService, "mark_all_read", "failed to mark notifications read", err)
	}
	return n, nil
}

// MarkDelivered sets the delivered flag. Repeated calls report changed=false.
func (q *NotificationQueue) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	changed, err := q.notifications.MarkDelivered(ctx, id)
	if err != nil {
		return false, NewServiceError(queueService, "mark_delivered", "failed to mark notification delivered", err)
	}
	return changed, nil
}

// ListUndelivered returns undelivered notifications oldest first.
func (q *NotificationQueue) ListUndelivered(ctx context.Context, limit int) ([]domain.PendingNotification, error) {
	rows, err := q.notifications.List(ctx, store.NotificationFilter{
		UndeliveredOnly: true,
		OldestFirst:     true,
		Limit:           limit,
	})
	if err != nil {
		return nil, NewServiceError(queueService, "list_undelivered", "failed to list undelivered notifications", err)
	}
	return rows, nil
}
