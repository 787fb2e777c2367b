package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
)

// IdentityStore persists agents and people and resolves display names to them.
type IdentityStore interface {
	// Create saves a new identity. Returns ErrIdentityNameExists on a name clash.
	Create(ctx context.Context, identity *domain.Identity) error

	// GetByID returns ErrIdentityNotFound if the identity does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error)

	// FindByName matches the display name case-insensitively.
	// Returns ErrIdentityNotFound if no identity has that name.
	FindByName(ctx context.Context, name string) (*domain.Identity, error)

	// FindByNames returns the identities whose names exactly match one of names.
	// Names without a match are absent from the result; that is not an error.
	FindByNames(ctx context.Context, names []string) ([]domain.Identity, error)

	// WithTx returns a store bound to the given transaction.
	WithTx(tx *sqlx.Tx) IdentityStore
}
