package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	t.Parallel()

	recipient := uuid.New()

	n, err := NewNotification(recipient, NotificationKindMention, "Mentioned in Review PR", "@Alice hi", NotificationMetadata{MentionedBy: "Bob"})
	require.NoError(t, err)
	assert.False(t, n.Read)
	assert.False(t, n.Delivered)
	assert.Equal(t, recipient, n.RecipientID)
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)

	_, err = NewNotification(uuid.Nil, NotificationKindMention, "t", "b", NotificationMetadata{})
	assert.True(t, errors.Is(err, ErrInvalidID))

	_, err = NewNotification(recipient, "bogus", "t", "b", NotificationMetadata{})
	assert.True(t, errors.Is(err, ErrInvalidKind))

	_, err = NewNotification(recipient, NotificationKindSystem, "", "b", NotificationMetadata{})
	assert.True(t, errors.Is(err, ErrEmptyContent))

	_, err = NewNotification(recipient, NotificationKindSystem, "t", " ", NotificationMetadata{})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNotificationMarkDeliveredIsMonotonic(t *testing.T) {
	t.Parallel()

	n, err := NewNotification(uuid.New(), NotificationKindSystem, "t", "b", NotificationMetadata{})
	require.NoError(t, err)

	later := n.UpdatedAt.Add(time.Minute)
	assert.True(t, n.MarkDelivered(later))
	assert.True(t, n.Delivered)
	assert.Equal(t, later, n.UpdatedAt)

	for i := 0; i < 3; i++ {
		assert.False(t, n.MarkDelivered(later.Add(time.Hour)))
		assert.True(t, n.Delivered)
	}
	assert.Equal(t, later, n.UpdatedAt)
}

func TestNotificationMarkRead(t *testing.T) {
	t.Parallel()

	n, err := NewNotification(uuid.New(), NotificationKindSystem, "t", "b", NotificationMetadata{})
	require.NoError(t, err)

	assert.True(t, n.MarkRead(time.Now()))
	assert.False(t, n.MarkRead(time.Now()))
	assert.True(t, n.Read)
}

func TestNotificationMetadataScan(t *testing.T) {
	t.Parallel()

	var m NotificationMetadata
	require.NoError(t, m.Scan(`{"task_id":"t1","link":"/tasks/t1"}`))
	assert.Equal(t, NotificationMetadata{TaskID: "t1", Link: "/tasks/t1"}, m)

	require.NoError(t, m.Scan(nil))
	assert.Equal(t, NotificationMetadata{}, m)

	require.NoError(t, m.Scan([]byte{}))
	assert.Equal(t, NotificationMetadata{}, m)

	err := m.Scan(42)
	assert.True(t, errors.Is(err, ErrInvalidFormat))

	v, err := NotificationMetadata{MentionedBy: "Bob"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"mentioned_by":"Bob"}`, v)
}
