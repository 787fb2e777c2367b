package service_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockIdentityStore mocks the store.IdentityStore interface
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) Create(ctx context.Context, identity *domain.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockIdentityStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentityStore) FindByName(ctx context.Context, name string) (*domain.Identity, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockIdentityStore) FindByNames(ctx context.Context, names []string) ([]domain.Identity, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Identity), args.Error(1)
}

func (m *MockIdentityStore) WithTx(tx *sqlx.Tx) store.IdentityStore {
	return m
}

// MockSubscriptionStore mocks the store.SubscriptionStore interface
type MockSubscriptionStore struct {
	mock.Mock
}

func (m *MockSubscriptionStore) Upsert(ctx context.Context, sub *domain.Subscription) (bool, error) {
	args := m.Called(ctx, sub)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionStore) Delete(ctx context.Context, threadID, identityID uuid.UUID) error {
	args := m.Called(ctx, threadID, identityID)
	return args.Error(0)
}

func (m *MockSubscriptionStore) Exists(ctx context.Context, threadID, identityID uuid.UUID) (bool, error) {
	args := m.Called(ctx, threadID, identityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionStore) ListSubscribers(ctx context.Context, threadID uuid.UUID) ([]domain.Subscriber, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Subscriber), args.Error(1)
}

func (m *MockSubscriptionStore) ListSubscriberIDs(ctx context.Context, threadID, exclude uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, threadID, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockSubscriptionStore) WithTx(tx *sqlx.Tx) store.SubscriptionStore {
	return m
}

// MockNotificationStore mocks the store.NotificationStore interface
type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationStore) List(ctx context.Context, filter store.NotificationFilter) ([]domain.PendingNotification, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingNotification), args.Error(1)
}

func (m *MockNotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationStore) MarkReadForRecipient(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationStore) WithTx(tx *sqlx.Tx) store.NotificationStore {
	return m
}
