package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
)

// SubscriptionStore persists thread subscriptions. Implementations must keep at
// most one row per (thread, identity) pair even under concurrent Upserts.
type SubscriptionStore interface {
	// Upsert inserts the subscription, or does nothing if the pair already exists.
	// created reports whether a row was inserted. A missing thread or identity
	// is reported as ErrThreadNotFound or ErrIdentityNotFound.
	Upsert(ctx context.Context, sub *domain.Subscription) (created bool, err error)

	// Delete removes the pair's subscription. Deleting a missing row is not an error.
	Delete(ctx context.Context, threadID, identityID uuid.UUID) error

	// Exists reports whether the pair is subscribed.
	Exists(ctx context.Context, threadID, identityID uuid.UUID) (bool, error)

	// ListSubscribers returns the thread's subscribers ordered by subscription
	// time ascending, with their display data.
	ListSubscribers(ctx context.Context, threadID uuid.UUID) ([]domain.Subscriber, error)

	// ListSubscriberIDs returns the identity ids subscribed to the thread, oldest
	// subscription first, leaving out exclude (pass uuid.Nil to keep everyone).
	ListSubscriberIDs(ctx context.Context, threadID, exclude uuid.UUID) ([]uuid.UUID, error)

	WithTx(tx *sqlx.Tx) SubscriptionStore
}
