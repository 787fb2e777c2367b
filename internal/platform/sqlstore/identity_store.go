package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/store"
)

const identityColumns = `id, name, avatar_emoji, status`

// IdentityStore implements store.IdentityStore over the agents table.
type IdentityStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewIdentityStore creates an IdentityStore. If logger is nil, slog.Default() is used.
func NewIdentityStore(db store.DBTX, logger *slog.Logger) *IdentityStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityStore{
		db:     db,
		logger: logger.With(slog.String("component", "identity_store")),
	}
}

var _ store.IdentityStore = (*IdentityStore)(nil)

// Create implements store.IdentityStore.
func (s *IdentityStore) Create(ctx context.Context, identity *domain.Identity) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := identity.Validate(); err != nil {
		return err
	}

	query := s.db.Rebind(`INSERT INTO agents (id, name, avatar_emoji, status) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, identity.ID, identity.Name, identity.Avatar, identity.Status); err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrDuplicate) {
			return fmt.Errorf("%w: %s", store.ErrIdentityNameExists, identity.Name)
		}
		log.Error("failed to create identity",
			redact.ErrorAttr(err),
			slog.String("identity_id", identity.ID.String()))
		return store.NewStoreError("identity", "create", "insert failed", mapped)
	}

	log.Debug("identity created",
		slog.String("identity_id", identity.ID.String()),
		slog.String("name", identity.Name))
	return nil
}

// GetByID implements store.IdentityStore.
func (s *IdentityStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	var identity domain.Identity
	query := s.db.Rebind(`SELECT ` + identityColumns + ` FROM agents WHERE id = ?`)
	if err := s.db.GetContext(ctx, &identity, query, id); err != nil {
		return nil, s.lookupError(ctx, "get_by_id", err)
	}
	return &identity, nil
}

// FindByName implements store.IdentityStore. Matching ignores case.
func (s *IdentityStore) FindByName(ctx context.Context, name string) (*domain.Identity, error) {
	var identity domain.Identity
	query := s.db.Rebind(`SELECT ` + identityColumns + ` FROM agents
		WHERE LOWER(name) = LOWER(?)
		ORDER BY created_at ASC
		LIMIT 1`)
	if err := s.db.GetContext(ctx, &identity, query, name); err != nil {
		return nil, s.lookupError(ctx, "find_by_name", err)
	}
	return &identity, nil
}

// FindByNames implements store.IdentityStore. Matching is exact.
func (s *IdentityStore) FindByNames(ctx context.Context, names []string) ([]domain.Identity, error) {
	if len(names) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+identityColumns+` FROM agents WHERE name IN (?) ORDER BY name`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity lookup: %w", err)
	}

	var identities []domain.Identity
	if err := s.db.SelectContext(ctx, &identities, s.db.Rebind(query), args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to resolve identities",
			redact.ErrorAttr(err),
			slog.Int("name_count", len(names)))
		return nil, store.NewStoreError("identity", "find_by_names", "query failed", MapError(err))
	}
	return identities, nil
}

// WithTx implements store.IdentityStore.
func (s *IdentityStore) WithTx(tx *sqlx.Tx) store.IdentityStore {
	return &IdentityStore{db: tx, logger: s.logger}
}

func (s *IdentityStore) lookupError(ctx context.Context, op string, err error) error {
	mapped := MapError(err)
	if errors.Is(mapped, store.ErrNotFound) {
		return store.ErrIdentityNotFound
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("identity lookup failed",
		redact.ErrorAttr(err),
		slog.String("operation", op))
	return store.NewStoreError("identity", op, "query failed", mapped)
}
