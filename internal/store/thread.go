package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
)

// ThreadStore persists tasks as discussion threads.
type ThreadStore interface {
	Create(ctx context.Context, thread *domain.Thread) error

	// GetByID returns ErrThreadNotFound if the thread does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Thread, error)

	// SetAssignee records the assignee's display name.
	// Returns ErrThreadNotFound if the thread does not exist.
	SetAssignee(ctx context.Context, id uuid.UUID, assignee string) error

	// SetStatus updates the board column of the thread.
	// Returns ErrThreadNotFound if the thread does not exist.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error

	WithTx(tx *sqlx.Tx) ThreadStore
}

// CommentStore persists thread comments.
type CommentStore interface {
	Create(ctx context.Context, comment *domain.Comment) error

	// ListByThread returns comments oldest first.
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]domain.Comment, error)

	WithTx(tx *sqlx.Tx) CommentStore
}
