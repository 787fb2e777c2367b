package sqlstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/store"
)

// ThreadStore implements store.ThreadStore over the tasks table.
type ThreadStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewThreadStore creates a ThreadStore. If logger is nil, slog.Default() is used.
func NewThreadStore(db store.DBTX, logger *slog.Logger) *ThreadStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreadStore{db: db, logger: logger.With(slog.String("component", "thread_store"))}
}

var _ store.ThreadStore = (*ThreadStore)(nil)

// Create implements store.ThreadStore.
func (s *ThreadStore) Create(ctx context.Context, t *domain.Thread) error {
	query := s.db.Rebind(`INSERT INTO tasks (id, title, assignee, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, t.ID, t.Title, t.Assignee, t.Status, t.CreatedAt, t.UpdatedAt); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create thread",
			redact.ErrorAttr(err),
			slog.String("task_id", t.ID.String()))
		return store.NewStoreError("thread", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetByID implements store.ThreadStore.
func (s *ThreadStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Thread, error) {
	var t domain.Thread
	query := s.db.Rebind(`SELECT id, title, assignee, status, created_at, updated_at FROM tasks WHERE id = ?`)
	if err := s.db.GetContext(ctx, &t, query, id); err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, store.ErrThreadNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get thread",
			redact.ErrorAttr(err),
			slog.String("task_id", id.String()))
		return nil, store.NewStoreError("thread", "get_by_id", "query failed", mapped)
	}
	return &t, nil
}

// SetAssignee implements store.ThreadStore.
func (s *ThreadStore) SetAssignee(ctx context.Context, id uuid.UUID, assignee string) error {
	return s.update(ctx, "set_assignee", `UPDATE tasks SET assignee = ?, updated_at = ? WHERE id = ?`, assignee, id)
}

// SetStatus implements store.ThreadStore.
func (s *ThreadStore) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return s.update(ctx, "set_status", `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`, status, id)
}

func (s *ThreadStore) update(ctx context.Context, op, query, value string, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), value, time.Now().UTC(), id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update thread",
			redact.ErrorAttr(err),
			slog.String("operation", op),
			slog.String("task_id", id.String()))
		return store.NewStoreError("thread", op, "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrThreadNotFound)
}

// WithTx implements store.ThreadStore.
func (s *ThreadStore) WithTx(tx *sqlx.Tx) store.ThreadStore {
	return &ThreadStore{db: tx, logger: s.logger}
}

// CommentStore implements store.CommentStore over the task_comments table.
type CommentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCommentStore creates a CommentStore. If logger is nil, slog.Default() is used.
func NewCommentStore(db store.DBTX, logger *slog.Logger) *CommentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentStore{db: db, logger: logger.With(slog.String("component", "comment_store"))}
}

var _ store.CommentStore = (*CommentStore)(nil)

// Create implements store.CommentStore. A comment on a missing thread yields
// store.ErrInvalidEntity.
func (s *CommentStore) Create(ctx context.Context, c *domain.Comment) error {
	query := s.db.Rebind(`INSERT INTO task_comments (id, task_id, agent_name, message, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.ThreadID, c.Author, c.Message, c.CreatedAt); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create comment",
			redact.ErrorAttr(err),
			slog.String("task_id", c.ThreadID.String()))
		return store.NewStoreError("comment", "create", "insert failed", MapError(err))
	}
	return nil
}

// ListByThread implements store.CommentStore.
func (s *CommentStore) ListByThread(ctx context.Context, threadID uuid.UUID) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	query := s.db.Rebind(`SELECT id, task_id, agent_name, message, created_at
		FROM task_comments WHERE task_id = ? ORDER BY created_at ASC`)
	if err := s.db.SelectContext(ctx, &comments, query, threadID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list comments",
			redact.ErrorAttr(err),
			slog.String("task_id", threadID.String()))
		return nil, store.NewStoreError("comment", "list", "query failed", MapError(err))
	}
	return comments, nil
}

// WithTx implements store.CommentStore.
func (s *CommentStore) WithTx(tx *sqlx.Tx) store.CommentStore {
	return &CommentStore{db: tx, logger: s.logger}
}
