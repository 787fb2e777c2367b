package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewTemplate() service.NotificationTemplate {
	return service.NotificationTemplate{
		Kind:  domain.NotificationKindMention,
		Title: "Mentioned in Review PR",
		Body:  "@Alice please review",
		Metadata: domain.NotificationMetadata{
			TaskID:      "t1",
			MentionedBy: "Bob",
			Link:        "/tasks/t1",
		},
	}
}

func TestEnqueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.identity(t, "Alice")

	n, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: alice.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)
	assert.False(t, n.Read)
	assert.False(t, n.Delivered)

	rows := f.mailbox(t, alice.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, n.ID, rows[0].ID)
	assert.Equal(t, "Bob", rows[0].Metadata.MentionedBy)

	t.Run("validation", func(t *testing.T) {
		bad := reviewTemplate()
		bad.Kind = "carrier-pigeon"
		_, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: alice.ID, NotificationTemplate: bad})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = f.queue.Enqueue(ctx, service.EnqueueRequest{NotificationTemplate: reviewTemplate()})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("recipient without identity is kept", func(t *testing.T) {
		ghost := uuid.New()
		n, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: ghost, NotificationTemplate: reviewTemplate()})
		require.NoError(t, err)
		assert.Equal(t, ghost, n.RecipientID)

		summary, err := f.queue.PendingSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Pending)
		assert.Equal(t, map[string]int{"Alice": 1, service.UnknownRecipient: 1}, summary.ByRecipient)
	})
}

func TestEnqueueBulkContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.identity(t, "Alice")
	bob := f.identity(t, "Bob")
	carol := f.identity(t, "Carol")

	boom := errors.New("constraint failed")
	f.wire(t, &failingCreateStore{
		NotificationStore: f.notifications,
		failFor:           map[uuid.UUID]error{bob.ID: boom},
	}, f.identities)

	result := f.queue.EnqueueBulk(ctx, []uuid.UUID{alice.ID, bob.ID, carol.ID}, reviewTemplate())

	require.Len(t, result.Created, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, bob.ID, result.Failures[0].RecipientID)
	assert.ErrorIs(t, result.Err(), boom)

	assert.Len(t, f.mailbox(t, alice.ID), 1)
	assert.Empty(t, f.mailbox(t, bob.ID))
	assert.Len(t, f.mailbox(t, carol.ID), 1)

	var warned bool
	for _, e := range f.logs.Entries() {
		if e["msg"] == "failed to enqueue notification for recipient" {
			warned = true
		}
	}
	assert.True(t, warned, "per-recipient failure should be logged")
}

func TestEnqueueBulkEmpty(t *testing.T) {
	f := newFixture(t)
	result := f.queue.EnqueueBulk(context.Background(), nil, reviewTemplate())
	assert.Empty(t, result.Created)
	assert.NoError(t, result.Err())
}

func TestListForIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.identity(t, "Alice")

	first, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: alice.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)
	second, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: alice.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)
	require.NoError(t, f.queue.MarkRead(ctx, first.ID))

	t.Run("by name, case-insensitive", func(t *testing.T) {
		rows, err := f.queue.ListForIdentifier(ctx, "alice", false, 0)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("by id, unread only", func(t *testing.T) {
		rows, err := f.queue.ListForIdentifier(ctx, alice.ID.String(), true, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, second.ID, rows[0].ID)
	})

	t.Run("unknown name", func(t *testing.T) {
		rows, err := f.queue.ListForIdentifier(ctx, "Mallory", false, 0)
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("empty identifier", func(t *testing.T) {
		_, err := f.queue.ListForIdentifier(ctx, "  ", false, 0)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestPendingSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.queue.PendingSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Pending)

	alice := f.identity(t, "Alice")
	bob := f.identity(t, "Bob")
	for _, id := range []uuid.UUID{alice.ID, alice.ID, bob.ID} {
		_, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: id, NotificationTemplate: reviewTemplate()})
		require.NoError(t, err)
	}

	summary, err = f.queue.PendingSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Pending)
	assert.Equal(t, map[string]int{"Alice": 2, "Bob": 1}, summary.ByRecipient)
}

func TestListPendingSystemWideIsOldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.identity(t, "Alice")
	bob := f.identity(t, "Bob")

	first, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: bob.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)
	second, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: alice.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)

	rows, err := f.queue.ListPending(ctx, service.PendingQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	if rows[0].CreatedAt.Equal(rows[1].CreatedAt) {
		t.Skip("timestamps collided; ordering is undefined")
	}
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)
}

func TestMarkReadBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.identity(t, "Alice")
	bob := f.identity(t, "Bob")

	mine, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: alice.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)
	theirs, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: bob.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)

	changed, err := f.queue.MarkReadBatch(ctx, alice.ID, []uuid.UUID{mine.ID, theirs.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	_, err = f.queue.MarkReadBatch(ctx, alice.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, f.queue.MarkRead(ctx, uuid.New()), service.ErrNotificationNotFound)
	assert.ErrorIs(t, f.queue.MarkRead(ctx, uuid.Nil), domain.ErrValidation)

	changed, err = f.queue.MarkAllRead(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)
}

func TestMarkDeliveredIsMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.identity(t, "Alice")

	n, err := f.queue.Enqueue(ctx, service.EnqueueRequest{RecipientID: alice.ID, NotificationTemplate: reviewTemplate()})
	require.NoError(t, err)

	undelivered, err := f.queue.ListUndelivered(ctx, 10)
	require.NoError(t, err)
	require.Len(t, undelivered, 1)

	changed, err := f.queue.MarkDelivered(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.queue.MarkDelivered(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	undelivered, err = f.queue.ListUndelivered(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, undelivered)

	_, err = f.queue.MarkDelivered(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotificationNotFound)
}
