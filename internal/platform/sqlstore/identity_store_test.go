package sqlstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityStore(t *testing.T) {
	db := newTestDB(t)
	s := sqlstore.NewIdentityStore(db, nil)
	ctx := context.Background()

	alice := mustIdentity(t, db, "Alice")
	bob := mustIdentity(t, db, "bob-bot")

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, *alice, *got)

		_, err = s.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrIdentityNotFound)
	})

	t.Run("find by name ignores case", func(t *testing.T) {
		got, err := s.FindByName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		got, err = s.FindByName(ctx, "BOB-BOT")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, got.ID)

		_, err = s.FindByName(ctx, "carol")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("find by names is exact and drops unknown", func(t *testing.T) {
		got, err := s.FindByNames(ctx, []string{"Alice", "alice", "nobody", "bob-bot"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Alice", got[0].Name)
		assert.Equal(t, "bob-bot", got[1].Name)

		got, err = s.FindByNames(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("duplicate name", func(t *testing.T) {
		dup, err := domain.NewIdentity("Alice", "", "")
		require.NoError(t, err)
		err = s.Create(ctx, dup)
		assert.ErrorIs(t, err, store.ErrIdentityNameExists)
		assert.True(t, store.IsDuplicateError(err))
	})

	t.Run("invalid identity", func(t *testing.T) {
		err := s.Create(ctx, &domain.Identity{ID: uuid.New()})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
