package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/api"
	"github.com/phrazzld/mission-control/internal/api/middleware"
	"github.com/phrazzld/mission-control/internal/broadcast"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/events"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/platform/sqlstore"
	"github.com/phrazzld/mission-control/internal/service"
	"github.com/phrazzld/mission-control/internal/store"
	"github.com/phrazzld/mission-control/internal/testdb"
	"github.com/stretchr/testify/require"
)

// testAPI serves every handler over a fresh SQLite database, without auth.
type testAPI struct {
	db     *sqlx.DB
	hub    *broadcast.Hub
	queue  *service.NotificationQueue
	logs   *logger.Buffer
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	log, buf := logger.NewCapture()
	db := testdb.Open(t)

	identities := sqlstore.NewIdentityStore(db, log)
	threads := sqlstore.NewThreadStore(db, log)
	comments := sqlstore.NewCommentStore(db, log)
	subscriptions := sqlstore.NewSubscriptionStore(db, log)
	notifications := sqlstore.NewNotificationStore(db, log)

	registry, err := service.NewSubscriptionRegistry(subscriptions, threads, log)
	require.NoError(t, err)
	queue, err := service.NewNotificationQueue(notifications, identities, log)
	require.NoError(t, err)
	mentions, err := service.NewMentionNotifier(identities, queue, log)
	require.NoError(t, err)

	hub := broadcast.NewHub(broadcast.Config{HeartbeatInterval: time.Hour}, log)
	t.Cleanup(hub.Close)
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(hub)

	publisher, err := service.NewActivityPublisher(mentions, emitter, log)
	require.NoError(t, err)
	tx := store.DBTxRunner{DB: db}
	commentSvc, err := service.NewCommentService(tx, identities, threads, comments, registry, queue, mentions, log)
	require.NoError(t, err)
	assignments, err := service.NewAssignmentService(tx, identities, threads, registry, queue, log)
	require.NoError(t, err)

	activityH := api.NewActivityHandler(publisher, hub, log)
	streamH := api.NewStreamHandler(hub, log)
	notificationH := api.NewNotificationHandler(queue, log)
	agentH := api.NewAgentHandler(identities, queue, log)
	taskH := api.NewTaskHandler(registry, commentSvc, assignments, log)
	healthH := api.NewHealthHandler(db, hub, log)

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(log))
	r.Get("/health", healthH.Health)
	r.Get("/api/sse", streamH.Stream)
	r.Route("/api", func(r chi.Router) {
		r.Post("/activities", activityH.CreateActivity)
		r.Get("/activities", activityH.GetActivityStatus)

		r.Get("/notifications", notificationH.ListNotifications)
		r.Post("/notifications", notificationH.CreateNotification)
		r.Patch("/notifications", notificationH.UpdateNotifications)
		r.Post("/notifications/deliver", notificationH.DeliveryStatus)
		r.Get("/notifications/deliver", notificationH.DescribeDelivery)

		r.Get("/agents/{name}/notifications", agentH.GetUnread)
		r.Post("/agents/{name}/notifications/mark-read", agentH.MarkRead)

		r.Post("/tasks/subscribe", taskH.Subscribe)
		r.Get("/tasks/subscribe", taskH.ListSubscribers)
		r.Post("/tasks/comments", taskH.PostComment)
		r.Get("/tasks/comments", taskH.ListComments)
		r.Post("/tasks/{id}/assignment", taskH.Assign)
		r.Post("/tasks/{id}/completion", taskH.Complete)
	})

	return &testAPI{db: db, hub: hub, queue: queue, logs: buf, router: r}
}

func (a *testAPI) identity(t *testing.T, name string) *domain.Identity {
	t.Helper()
	return testdb.Identity(t, a.db, name)
}

func (a *testAPI) thread(t *testing.T, title string) *domain.Thread {
	t.Helper()
	return testdb.Thread(t, a.db, title)
}

// do sends a request with an optional JSON body. A string body is sent verbatim.
func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

type errorBody struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id"`
}
