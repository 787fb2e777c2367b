package service_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/events"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/service"
	"github.com/phrazzld/mission-control/internal/store"
	"github.com/phrazzld/mission-control/internal/testdb"
	"github.com/stretchr/testify/require"
)

// eventRecorder captures emitted events.
type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *eventRecorder) HandleEvent(_ context.Context, e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) Events() []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.Event(nil), r.events...)
}

// fixture wires every service over a fresh SQLite database.
type fixture struct {
	db   *sqlx.DB
	log  *slog.Logger
	logs *logger.Buffer

	identities    store.IdentityStore
	threads       store.ThreadStore
	comments      store.CommentStore
	subscriptions store.SubscriptionStore
	notifications store.NotificationStore

	registry    *service.SubscriptionRegistry
	queue       *service.NotificationQueue
	mentions    *service.MentionNotifier
	emitter     *events.InMemoryEventEmitter
	recorder    *eventRecorder
	publisher   *service.ActivityPublisher
	commentSvc  *service.CommentService
	assignments *service.AssignmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, buf := logger.NewCapture()
	db := testdb.Open(t)

	f := &fixture{
		db:            db,
		log:           log,
		logs:          buf,
		identities:    sqlstore.NewIdentityStore(db, log),
		threads:       sqlstore.NewThreadStore(db, log),
		comments:      sqlstore.NewCommentStore(db, log),
		subscriptions: sqlstore.NewSubscriptionStore(db, log),
		notifications: sqlstore.NewNotificationStore(db, log),
		recorder:      &eventRecorder{},
	}
	f.wire(t, f.notifications, f.identities)
	return f
}

// wire (re)builds the services over the given notification and identity stores,
// so tests can substitute decorated or mocked ones.
func (f *fixture) wire(t *testing.T, notifications store.NotificationStore, identities store.IdentityStore) {
	t.Helper()
	var err error

	f.registry, err = service.NewSubscriptionRegistry(f.subscriptions, f.threads, f.log)
	require.NoError(t, err)
	f.queue, err = service.NewNotificationQueue(notifications, identities, f.log)
	require.NoError(t, err)
	f.mentions, err = service.NewMentionNotifier(identities, f.queue, f.log)
	require.NoError(t, err)

	f.emitter = events.NewInMemoryEventEmitter(f.log)
	f.emitter.RegisterHandler(f.recorder)
	f.publisher, err = service.NewActivityPublisher(f.mentions, f.emitter, f.log)
	require.NoError(t, err)

	tx := store.DBTxRunner{DB: f.db}
	f.commentSvc, err = service.NewCommentService(tx, identities, f.threads, f.comments,
		f.registry, f.queue, f.mentions, f.log)
	require.NoError(t, err)
	f.assignments, err = service.NewAssignmentService(tx, identities, f.threads, f.registry, f.queue, f.log)
	require.NoError(t, err)
}

func (f *fixture) identity(t *testing.T, name string) *domain.Identity {
	t.Helper()
	return testdb.Identity(t, f.db, name)
}

func (f *fixture) thread(t *testing.T, title string) *domain.Thread {
	t.Helper()
	return testdb.Thread(t, f.db, title)
}

// mailbox returns every notification of the recipient, newest first.
func (f *fixture) mailbox(t *testing.T, recipient uuid.UUID) []domain.PendingNotification {
	t.Helper()
	rows, err := f.notifications.List(context.Background(), store.NotificationFilter{RecipientID: &recipient})
	require.NoError(t, err)
	return rows
}

func (f *fixture) subscriptionRows(t *testing.T, threadID, identityID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.GetContext(context.Background(), &n,
		f.db.Rebind(`SELECT COUNT(*) FROM task_subscriptions WHERE task_id = ? AND agent_id = ?`),
		threadID, identityID))
	return n
}

// failingCreateStore fails Create for the listed recipients and delegates
// everything else.
type failingCreateStore struct {
	store.NotificationStore
	failFor map[uuid.UUID]error
}

func (s *failingCreateStore) Create(ctx context.Context, n *domain.Notification) error {
	if err, ok := s.failFor[n.RecipientID]; ok {
		return err
	}
	return s.NotificationStore.Create(ctx, n)
}

func (s *failingCreateStore) WithTx(tx *sqlx.Tx) store.NotificationStore {
	return &failingCreateStore{NotificationStore: s.NotificationStore.WithTx(tx), failFor: s.failFor}
}
