package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/store"
)

const notificationColumns = `n.id, n.user_id, n.type, n.title, n.message, n.read, n.delivered,
	n.metadata, n.created_at, n.updated_at`

// NotificationStore implements store.NotificationStore over the notifications table.
type NotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewNotificationStore creates a NotificationStore. If logger is nil, slog.Default() is used.
func NewNotificationStore(db store.DBTX, logger *slog.Logger) *NotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// Create implements store.NotificationStore.
func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		log.Warn("notification validation failed during create",
			redact.ErrorAttr(err),
			slog.String("notification_id", n.ID.String()))
		return err
	}

	query := s.db.Rebind(`INSERT INTO notifications
		(id, user_id, type, title, message, read, delivered, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.RecipientID, string(n.Kind), n.Title, n.Body,
		n.Read, n.Delivered, n.Metadata, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		log.Error("failed to create notification",
			redact.ErrorAttr(err),
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", n.RecipientID.String()))
		return store.NewStoreError("notification", "create", "insert failed", MapError(err))
	}

	log.Debug("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", n.RecipientID.String()),
		slog.String("type", string(n.Kind)))
	return nil
}

// GetByID implements store.NotificationStore.
func (s *NotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var n domain.Notification
	query := s.db.Rebind(`SELECT ` + notificationColumns + ` FROM notifications n WHERE n.id = ?`)
	if err := s.db.GetContext(ctx, &n, query, id); err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, store.ErrNotificationNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get notification",
			redact.ErrorAttr(err),
			slog.String("notification_id", id.String()))
		return nil, store.NewStoreError("notification", "get_by_id", "query failed", mapped)
	}
	return &n, nil
}

// List implements store.NotificationStore.
func (s *NotificationStore) List(ctx context.Context, f store.NotificationFilter) ([]domain.PendingNotification, error) {
	var (
		conds []string
		args  []any
	)
	if f.RecipientID != nil {
		conds = append(conds, "n.user_id = ?")
		args = append(args, *f.RecipientID)
	}
	if f.UnreadOnly {
		conds = append(conds, "n.read = ?")
		args = append(args, false)
	}
	if f.UndeliveredOnly {
		conds = append(conds, "n.delivered = ?")
		args = append(args, false)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + notificationColumns + `, COALESCE(a.name, '') AS recipient_name
		FROM notifications n
		LEFT JOIN agents a ON a.id = n.user_id`)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	if f.OldestFirst {
		b.WriteString(" ORDER BY n.created_at ASC")
	} else {
		b.WriteString(" ORDER BY n.created_at DESC")
	}
	if f.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", f.Limit))
	}

	rows := []domain.PendingNotification{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(b.String()), args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notifications",
			redact.ErrorAttr(err),
			slog.Bool("unread_only", f.UnreadOnly),
			slog.Bool("undelivered_only", f.UndeliveredOnly))
		return nil, store.NewStoreError("notification", "list", "query failed", MapError(err))
	}
	return rows, nil
}

// MarkRead implements store.NotificationStore.
func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := s.db.Rebind(`UPDATE notifications SET read = ?, updated_at = ? WHERE id = ? AND read = ?`)
	result, err := s.db.ExecContext(ctx, query, true, s.now(), id, false)
	if err != nil {
		return s.updateError(ctx, "mark_read", err)
	}
	if err := CheckRowsAffected(result, store.ErrNotificationNotFound); err == nil {
		return nil
	}
	// Nothing changed: either already read or absent.
	_, err = s.GetByID(ctx, id)
	return err
}

// MarkReadForRecipient implements store.NotificationStore.
func (s *NotificationStore) MarkReadForRecipient(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(
		`UPDATE notifications SET read = ?, updated_at = ? WHERE user_id = ? AND read = ? AND id IN (?)`,
		true, s.now(), recipientID, false, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to build mark-read query: %w", err)
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, s.updateError(ctx, "mark_read_batch", err)
	}
	return result.RowsAffected()
}

// MarkAllRead implements store.NotificationStore.
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := s.db.Rebind(`UPDATE notifications SET read = ?, updated_at = ? WHERE user_id = ? AND read = ?`)
	result, err := s.db.ExecContext(ctx, query, true, s.now(), recipientID, false)
	if err != nil {
		return 0, s.updateError(ctx, "mark_all_read", err)
	}
	return result.RowsAffected()
}

// MarkDelivered implements store.NotificationStore. The update only matches rows
// still undelivered, so delivered can never be cleared through this path.
func (s *NotificationStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := s.db.Rebind(`UPDATE notifications SET delivered = ?, updated_at = ? WHERE id = ? AND delivered = ?`)
	result, err := s.db.ExecContext(ctx, query, true, s.now(), id, false)
	if err != nil {
		return false, s.updateError(ctx, "mark_delivered", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, store.NewStoreError("notification", "mark_delivered", "rows affected unavailable", err)
	}
	if rows > 0 {
		return true, nil
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// WithTx implements store.NotificationStore.
func (s *NotificationStore) WithTx(tx *sqlx.Tx) store.NotificationStore {
	return &NotificationStore{db: tx, logger: s.logger, now: s.now}
}

func (s *NotificationStore) updateError(ctx context.Context, op string, err error) error {
	logger.FromContextOrDefault(ctx, s.logger).Error("failed to update notification",
		redact.ErrorAttr(err),
		slog.String("operation", op))
	return store.NewStoreError("notification", op, "update failed", MapError(err))
}
