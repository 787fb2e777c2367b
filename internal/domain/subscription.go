package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription relates one identity to one thread. There is at most one per
// (ThreadID, IdentityID) pair.
type Subscription struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ThreadID     uuid.UUID `json:"task_id" db:"task_id"`
	IdentityID   uuid.UUID `json:"agent_id" db:"agent_id"`
	SubscribedAt time.Time `json:"subscribed_at" db:"subscribed_at"`
}

// NewSubscription creates a subscription stamped with the current time.
func NewSubscription(threadID, identityID uuid.UUID) (*Subscription, error) {
	if threadID == uuid.Nil {
		return nil, NewValidationError("task_id", "is required", ErrInvalidID)
	}
	if identityID == uuid.Nil {
		return nil, NewValidationError("agent_id", "is required", ErrInvalidID)
	}
	return &Subscription{
		ID:           uuid.New(),
		ThreadID:     threadID,
		IdentityID:   identityID,
		SubscribedAt: time.Now().UTC(),
	}, nil
}

// Subscriber is a subscription joined with the subscribed identity's display data.
type Subscriber struct {
	SubscriptionID uuid.UUID `json:"id" db:"subscription_id"`
	SubscribedAt   time.Time `json:"subscribed_at" db:"subscribed_at"`
	Identity       Identity  `json:"agent" db:"agent"`
}
