package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/store"
)

const registryService = "subscription_registry"

// SubscriptionRegistry tracks which identities follow which task threads.
type SubscriptionRegistry struct {
	subscriptions store.SubscriptionStore
	threads       store.ThreadStore
	logger        *slog.Logger
}

// NewSubscriptionRegistry creates a SubscriptionRegistry. If logger is nil,
// slog.Default() is used.
func NewSubscriptionRegistry(
	subscriptions store.SubscriptionStore,
	threads store.ThreadStore,
	logger *slog.Logger,
) (*SubscriptionRegistry, error) {
	if subscriptions == nil {
		return nil, nilDependency(registryService, "subscriptions")
	}
	if threads == nil {
		return nil, nilDependency(registryService, "threads")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionRegistry{
		subscriptions: subscriptions,
		threads:       threads,
		logger:        logger.With(slog.String("component", registryService)),
	}, nil
}

// WithTx returns a registry whose stores use tx.
func (r *SubscriptionRegistry) WithTx(tx *sqlx.Tx) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		subscriptions: r.subscriptions.WithTx(tx),
		threads:       r.threads.WithTx(tx),
		logger:        r.logger,
	}
}

// Subscribe makes identityID follow threadID. It is idempotent: created is false
// when the subscription already existed.
func (r *SubscriptionRegistry) Subscribe(ctx context.Context, threadID, identityID uuid.UUID) (bool, error) {
	sub, err := domain.NewSubscription(threadID, identityID)
	if err != nil {
		return false, err
	}

	created, err := r.subscriptions.Upsert(ctx, sub)
	if err != nil {
		return false, NewServiceError(registryService, "subscribe", "failed to store subscription", err)
	}

	logger.FromContextOrDefault(ctx, r.logger).Debug("thread subscription ensured",
		slog.String("task_id", threadID.String()),
		slog.String("agent_id", identityID.String()),
		slog.Bool("created", created))
	return created, nil
}

// Unsubscribe removes the subscription. Removing a missing one is not an error.
func (r *SubscriptionRegistry) Unsubscribe(ctx context.Context, threadID, identityID uuid.UUID) error {
	if err := validatePair(threadID, identityID); err != nil {
		return err
	}
	if err := r.subscriptions.Delete(ctx, threadID, identityID); err != nil {
		return NewServiceError(registryService, "unsubscribe", "failed to delete subscription", err)
	}
	return nil
}

// ListSubscribers returns the thread's subscribers, earliest first.
// Returns ErrThreadNotFound if the thread does not exist.
func (r *SubscriptionRegistry) ListSubscribers(ctx context.Context, threadID uuid.UUID) ([]domain.Subscriber, error) {
	if threadID == uuid.Nil {
		return nil, domain.NewValidationError("task_id", "is required", domain.ErrInvalidID)
	}
	if _, err := r.threads.GetByID(ctx, threadID); err != nil {
		return nil, NewServiceError(registryService, "list_subscribers", "failed to load thread", err)
	}
	subs, err := r.subscriptions.ListSubscribers(ctx, threadID)
	if err != nil {
		return nil, NewServiceError(registryService, "list_subscribers", "failed to list subscribers", err)
	}
	return subs, nil
}

// IsSubscribed reports whether identityID follows threadID.
func (r *SubscriptionRegistry) IsSubscribed(ctx context.Context, threadID, identityID uuid.UUID) (bool, error) {
	if err := validatePair(threadID, identityID); err != nil {
		return false, err
	}
	ok, err := r.subscriptions.Exists(ctx, threadID, identityID)
	if err != nil {
		return false, NewServiceError(registryService, "is_subscribed", "failed to check subscription", err)
	}
	return ok, nil
}

// SubscriberIDs returns the ids following threadID other than exclude.
func (r *SubscriptionRegistry) SubscriberIDs(ctx context.Context, threadID, exclude uuid.UUID) ([]uuid.UUID, error) {
	ids, err := r.subscriptions.ListSubscriberIDs(ctx, threadID, exclude)
	if err != nil {
		return nil, NewServiceError(registryService, "subscriber_ids", "failed to list subscriber ids", err)
	}
	return ids, nil
}

func validatePair(threadID, identityID uuid.UUID) error {
	if threadID == uuid.Nil {
		return domain.NewValidationError("task_id", "is required", domain.ErrInvalidID)
	}
	if identityID == uuid.Nil {
		return domain.NewValidationError("agent_id", "is required", domain.ErrInvalidID)
	}
	return nil
}
