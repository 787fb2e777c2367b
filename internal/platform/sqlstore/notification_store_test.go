package sqlstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotification(t *testing.T, recipient uuid.UUID, title string, at time.Time) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(recipient, domain.NotificationKindMention, title, "body of "+title,
		domain.NotificationMetadata{TaskID: "t1", MentionedBy: "Bob", Link: "/tasks/t1"})
	require.NoError(t, err)
	n.CreatedAt = at
	n.UpdatedAt = at
	return n
}

func TestNotificationStoreCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	s := sqlstore.NewNotificationStore(db, nil)
	ctx := context.Background()

	alice := mustIdentity(t, db, "Alice")
	n := newNotification(t, alice.ID, "hello", time.Now().UTC())
	require.NoError(t, s.Create(ctx, n))

	got, err := s.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, alice.ID, got.RecipientID)
	assert.Equal(t, domain.NotificationKindMention, got.Kind)
	assert.False(t, got.Read)
	assert.False(t, got.Delivered)
	assert.Equal(t, "Bob", got.Metadata.MentionedBy)
	assert.Equal(t, "/tasks/t1", got.Metadata.Link)
	assert.WithinDuration(t, n.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)

	bad := &domain.Notification{ID: uuid.New()}
	assert.ErrorIs(t, s.Create(ctx, bad), domain.ErrValidation)
}

func TestNotificationStoreList(t *testing.T) {
	db := newTestDB(t)
	s := sqlstore.NewNotificationStore(db, nil)
	ctx := context.Background()

	alice := mustIdentity(t, db, "Alice")
	bob := mustIdentity(t, db, "Bob")
	ghost := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	a1 := newNotification(t, alice.ID, "a1", base)
	a2 := newNotification(t, alice.ID, "a2", base.Add(time.Minute))
	b1 := newNotification(t, bob.ID, "b1", base.Add(2*time.Minute))
	g1 := newNotification(t, ghost, "g1", base.Add(3*time.Minute))
	for _, n := range []*domain.Notification{a1, a2, b1, g1} {
		require.NoError(t, s.Create(ctx, n))
	}
	require.NoError(t, s.MarkRead(ctx, a1.ID))
	_, err := s.MarkDelivered(ctx, b1.ID)
	require.NoError(t, err)

	t.Run("mailbox is newest first", func(t *testing.T) {
		got, err := s.List(ctx, store.NotificationFilter{RecipientID: &alice.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a2", got[0].Title)
		assert.Equal(t, "a1", got[1].Title)
		assert.Equal(t, "Alice", got[0].RecipientName)
	})

	t.Run("unread only", func(t *testing.T) {
		got, err := s.List(ctx, store.NotificationFilter{RecipientID: &alice.ID, UnreadOnly: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a2", got[0].Title)
	})

	t.Run("system wide undelivered oldest first", func(t *testing.T) {
		got, err := s.List(ctx, store.NotificationFilter{UndeliveredOnly: true, OldestFirst: true})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "a1", got[0].Title)
		assert.Equal(t, "a2", got[1].Title)
		assert.Equal(t, "g1", got[2].Title)
		assert.Empty(t, got[2].RecipientName, "recipient without identity has no name")
	})

	t.Run("limit", func(t *testing.T) {
		got, err := s.List(ctx, store.NotificationFilter{OldestFirst: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a1", got[0].Title)
	})
}

func TestNotificationStoreMarkRead(t *testing.T) {
	db := newTestDB(t)
	s := sqlstore.NewNotificationStore(db, nil)
	ctx := context.Background()

	alice := mustIdentity(t, db, "Alice")
	bob := mustIdentity(t, db, "Bob")
	base := time.Now().UTC().Add(-time.Hour)
	a1 := newNotification(t, alice.ID, "a1", base)
	a2 := newNotification(t, alice.ID, "a2", base.Add(time.Second))
	a3 := newNotification(t, alice.ID, "a3", base.Add(2*time.Second))
	b1 := newNotification(t, bob.ID, "b1", base.Add(3*time.Second))
	for _, n := range []*domain.Notification{a1, a2, a3, b1} {
		require.NoError(t, s.Create(ctx, n))
	}

	require.NoError(t, s.MarkRead(ctx, a1.ID))
	require.NoError(t, s.MarkRead(ctx, a1.ID), "mark read is idempotent")
	assert.ErrorIs(t, s.MarkRead(ctx, uuid.New()), store.ErrNotificationNotFound)

	got, err := s.GetByID(ctx, a1.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)
	assert.True(t, got.UpdatedAt.After(a1.UpdatedAt))

	changed, err := s.MarkReadForRecipient(ctx, alice.ID, []uuid.UUID{a1.ID, a2.ID, b1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed, "a1 already read and b1 belongs to bob")

	bobsNote, err := s.GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.False(t, bobsNote.Read)

	changed, err = s.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	changed, err = s.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	changed, err = s.MarkReadForRecipient(ctx, alice.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestNotificationStoreMarkDeliveredIsMonotonic(t *testing.T) {
	db := newTestDB(t)
	s := sqlstore.NewNotificationStore(db, nil)
	ctx := context.Background()

	alice := mustIdentity(t, db, "Alice")
	n := newNotification(t, alice.ID, "deliver me", time.Now().UTC())
	require.NoError(t, s.Create(ctx, n))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := s.MarkDelivered(ctx, n.ID)
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changes)

	for i := 0; i < 3; i++ {
		changed, err := s.MarkDelivered(ctx, n.ID)
		require.NoError(t, err)
		assert.False(t, changed)

		got, err := s.GetByID(ctx, n.ID)
		require.NoError(t, err)
		assert.True(t, got.Delivered)
	}

	_, err := s.MarkDelivered(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)

	pending, err := s.List(ctx, store.NotificationFilter{UndeliveredOnly: true})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
