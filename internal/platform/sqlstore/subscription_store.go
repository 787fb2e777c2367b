package sqlstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/store"
)

// SubscriptionStore implements store.SubscriptionStore over task_subscriptions.
// Uniqueness per (task_id, agent_id) is enforced by the table's unique key, and
// Upsert relies on ON CONFLICT DO NOTHING so racing callers never duplicate a row.
type SubscriptionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSubscriptionStore creates a SubscriptionStore. If logger is nil, slog.Default() is used.
func NewSubscriptionStore(db store.DBTX, logger *slog.Logger) *SubscriptionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionStore{db: db, logger: logger.With(slog.String("component", "subscription_store"))}
}

var _ store.SubscriptionStore = (*SubscriptionStore)(nil)

// Upsert implements store.SubscriptionStore.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *domain.Subscription) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.db.Rebind(`INSERT INTO task_subscriptions (id, task_id, agent_id, subscribed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (task_id, agent_id) DO NOTHING`)
	result, err := s.db.ExecContext(ctx, query, sub.ID, sub.ThreadID, sub.IdentityID, sub.SubscribedAt)
	if err != nil {
		log.Error("failed to upsert subscription",
			redact.ErrorAttr(err),
			slog.String("task_id", sub.ThreadID.String()),
			slog.String("agent_id", sub.IdentityID.String()))
		return false, store.NewStoreError("subscription", "upsert", "insert failed", s.classifyMissing(ctx, sub, MapError(err)))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, store.NewStoreError("subscription", "upsert", "rows affected unavailable", err)
	}

	log.Debug("subscription upserted",
		slog.String("task_id", sub.ThreadID.String()),
		slog.String("agent_id", sub.IdentityID.String()),
		slog.Bool("created", rows > 0))
	return rows > 0, nil
}

// classifyMissing names the missing side of a foreign key failure the driver
// reported without a constraint name. SQLite does this, and a failed statement
// leaves its transaction usable. Anything else is returned unchanged.
func (s *SubscriptionStore) classifyMissing(ctx context.Context, sub *domain.Subscription, err error) error {
	if !errors.Is(err, store.ErrInvalidEntity) || errors.Is(err, store.ErrNotFound) {
		return err
	}

	var threads, identities int
	query := s.db.Rebind(`SELECT
		(SELECT COUNT(*) FROM tasks WHERE id = ?),
		(SELECT COUNT(*) FROM agents WHERE id = ?)`)
	if qerr := s.db.QueryRowxContext(ctx, query, sub.ThreadID, sub.IdentityID).Scan(&threads, &identities); qerr != nil {
		return err
	}
	switch {
	case threads == 0:
		return missingReference(store.ErrThreadNotFound, err)
	case identities == 0:
		return missingReference(store.ErrIdentityNotFound, err)
	}
	return err
}

// Delete implements store.SubscriptionStore.
func (s *SubscriptionStore) Delete(ctx context.Context, threadID, identityID uuid.UUID) error {
	query := s.db.Rebind(`DELETE FROM task_subscriptions WHERE task_id = ? AND agent_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, threadID, identityID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete subscription",
			redact.ErrorAttr(err),
			slog.String("task_id", threadID.String()),
			slog.String("agent_id", identityID.String()))
		return store.NewStoreError("subscription", "delete", "delete failed", MapError(err))
	}
	return nil
}

// Exists implements store.SubscriptionStore.
func (s *SubscriptionStore) Exists(ctx context.Context, threadID, identityID uuid.UUID) (bool, error) {
	var count int
	query := s.db.Rebind(`SELECT COUNT(*) FROM task_subscriptions WHERE task_id = ? AND agent_id = ?`)
	if err := s.db.GetContext(ctx, &count, query, threadID, identityID); err != nil {
		return false, store.NewStoreError("subscription", "exists", "query failed", MapError(err))
	}
	return count > 0, nil
}

// ListSubscribers implements store.SubscriptionStore.
func (s *SubscriptionStore) ListSubscribers(ctx context.Context, threadID uuid.UUID) ([]domain.Subscriber, error) {
	subscribers := []domain.Subscriber{}
	query := s.db.Rebind(`SELECT
			s.id AS subscription_id,
			s.subscribed_at,
			a.id AS "agent.id",
			a.name AS "agent.name",
			a.avatar_emoji AS "agent.avatar_emoji",
			a.status AS "agent.status"
		FROM task_subscriptions s
		JOIN agents a ON a.id = s.agent_id
		WHERE s.task_id = ?
		ORDER BY s.subscribed_at ASC`)
	if err := s.db.SelectContext(ctx, &subscribers, query, threadID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list subscribers",
			redact.ErrorAttr(err),
			slog.String("task_id", threadID.String()))
		return nil, store.NewStoreError("subscription", "list", "query failed", MapError(err))
	}
	return subscribers, nil
}

// ListSubscriberIDs implements store.SubscriptionStore.
func (s *SubscriptionStore) ListSubscriberIDs(ctx context.Context, threadID, exclude uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := s.db.Rebind(`SELECT agent_id FROM task_subscriptions
		WHERE task_id = ? AND agent_id <> ?
		ORDER BY subscribed_at ASC`)
	if err := s.db.SelectContext(ctx, &ids, query, threadID, exclude); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list subscriber ids",
			redact.ErrorAttr(err),
			slog.String("task_id", threadID.String()))
		return nil, store.NewStoreError("subscription", "list_ids", "query failed", MapError(err))
	}
	return ids, nil
}

// WithTx implements store.SubscriptionStore.
func (s *SubscriptionStore) WithTx(tx *sqlx.Tx) store.SubscriptionStore {
	return &SubscriptionStore{db: tx, logger: s.logger}
}
