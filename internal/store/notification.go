package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
)

// NotificationFilter narrows a notification listing. Filters combine with AND.
type NotificationFilter struct {
	// RecipientID restricts the listing to one mailbox when non-nil.
	RecipientID *uuid.UUID
	// UnreadOnly keeps read=false.
	UnreadOnly bool
	// UndeliveredOnly keeps delivered=false.
	UndeliveredOnly bool
	// OldestFirst orders by created_at ascending; the default is newest first.
	OldestFirst bool
	// Limit caps the result; 0 means no limit.
	Limit int
}

// NotificationStore persists per-recipient notifications. Rows are never deleted,
// and delivered never goes from true back to false.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID returns ErrNotificationNotFound if the notification does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// List returns notifications matching the filter, each joined with the
	// recipient's current display name (empty when the identity is gone).
	List(ctx context.Context, filter NotificationFilter) ([]domain.PendingNotification, error)

	// MarkRead sets read=true and bumps updated_at. Idempotent.
	// Returns ErrNotificationNotFound if the notification does not exist.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkReadForRecipient marks the given notifications read, ignoring ids that
	// belong to another recipient. Returns the number of rows that changed.
	MarkReadForRecipient(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error)

	// MarkAllRead marks every unread notification of the recipient read.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)

	// MarkDelivered sets delivered=true if it is still false. changed is false for
	// a notification that was already delivered.
	// Returns ErrNotificationNotFound if the notification does not exist.
	MarkDelivered(ctx context.Context, id uuid.UUID) (changed bool, err error)

	WithTx(tx *sqlx.Tx) NotificationStore
}
