package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/api"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (a *testAPI) enqueue(t *testing.T, recipient uuid.UUID, title string) *domain.Notification {
	t.Helper()
	n, err := a.queue.Enqueue(t.Context(), service.EnqueueRequest{
		RecipientID: recipient,
		NotificationTemplate: service.NotificationTemplate{
			Kind:  domain.NotificationKindSystem,
			Title: title,
			Body:  "body of " + title,
		},
	})
	require.NoError(t, err)
	return n
}

func TestCreateNotification(t *testing.T) {
	a := newTestAPI(t)
	alice := a.identity(t, "Alice")

	w := a.do(t, http.MethodPost, "/api/notifications", map[string]any{
		"user_id":  alice.ID,
		"type":     "system",
		"title":    "Deploy finished",
		"message":  "v1.2.3 is live",
		"metadata": map[string]string{"link": "/deploys/42"},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	n := decode[api.NotificationResponse](t, w).Notification
	require.NotNil(t, n)
	assert.Equal(t, alice.ID, n.RecipientID)
	assert.Equal(t, "/deploys/42", n.Metadata.Link)
	assert.False(t, n.Read)
	assert.False(t, n.Delivered)
}

func TestCreateNotificationValidation(t *testing.T) {
	a := newTestAPI(t)
	alice := a.identity(t, "Alice")

	tests := []struct {
		name    string
		body    map[string]any
		wantMsg string
	}{
		{
			name:    "missing title",
			body:    map[string]any{"user_id": alice.ID, "type": "system", "message": "m"},
			wantMsg: "Invalid title: required field",
		},
		{
			name:    "unknown type",
			body:    map[string]any{"user_id": alice.ID, "type": "spam", "title": "t", "message": "m"},
			wantMsg: "Invalid type: must be one of mention, task_assigned, task_completed, system",
		},
		{
			name:    "missing user",
			body:    map[string]any{"type": "system", "title": "t", "message": "m"},
			wantMsg: "Invalid user_id: is required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/api/notifications", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.wantMsg, decode[errorBody](t, w).Error)
		})
	}
}

func TestListNotifications(t *testing.T) {
	a := newTestAPI(t)
	alice := a.identity(t, "Alice")
	first := a.enqueue(t, alice.ID, "first")
	a.enqueue(t, alice.ID, "second")
	require.NoError(t, a.queue.MarkRead(t.Context(), first.ID))

	t.Run("by name", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/notifications?user_id=alice", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[api.NotificationListResponse](t, w).Notifications, 2)
	})

	t.Run("unread only by id", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/notifications?unread_only=true&user_id="+alice.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		rows := decode[api.NotificationListResponse](t, w).Notifications
		require.Len(t, rows, 1)
		assert.Equal(t, "second", rows[0].Title)
	})

	t.Run("limit", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/notifications?limit=1&user_id=Alice", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[api.NotificationListResponse](t, w).Notifications, 1)
	})

	t.Run("unknown name is empty", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/notifications?user_id=nobody", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"notifications":[]}`, w.Body.String())
	})

	t.Run("missing user", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/notifications", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid user_id: is required", decode[errorBody](t, w).Error)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/notifications?user_id=alice&limit=-3", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateNotifications(t *testing.T) {
	a := newTestAPI(t)
	alice := a.identity(t, "Alice")
	one := a.enqueue(t, alice.ID, "one")
	a.enqueue(t, alice.ID, "two")
	a.enqueue(t, alice.ID, "three")

	w := a.do(t, http.MethodPatch, "/api/notifications", map[string]any{"notification_id": one.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[api.MarkReadResponse](t, w).Success)

	w = a.do(t, http.MethodPatch, "/api/notifications", map[string]any{"user_id": alice.ID, "mark_all": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[api.MarkReadResponse](t, w).Marked)

	unread, err := a.queue.ListForIdentifier(t.Context(), "Alice", true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)

	w = a.do(t, http.MethodPatch, "/api/notifications", map[string]any{"user_id": alice.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "notification_id or (mark_all + user_id) required", decode[errorBody](t, w).Error)

	w = a.do(t, http.MethodPatch, "/api/notifications", map[string]any{"notification_id": uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Notification not found", decode[errorBody](t, w).Error)
}

func TestDeliveryStatus(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/notifications/deliver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[api.DeliveryStatusResponse](t, w)
	assert.Equal(t, 0, empty.Pending)
	assert.Equal(t, "No pending notifications", empty.Message)

	alice := a.identity(t, "Alice")
	bob := a.identity(t, "Bob")
	a.enqueue(t, alice.ID, "a1")
	a.enqueue(t, alice.ID, "a2")
	a.enqueue(t, bob.ID, "b1")

	w = a.do(t, http.MethodPost, "/api/notifications/deliver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[api.DeliveryStatusResponse](t, w)
	assert.Equal(t, 3, status.Pending)
	assert.Equal(t, map[string]int{"Alice": 2, "Bob": 1}, status.ByRecipient)
	assert.Equal(t, fmt.Sprintf("%d notification(s) waiting to be picked up by agents during heartbeat", 3), status.Message)

	w = a.do(t, http.MethodGet, "/api/notifications/deliver", nil)
	require.Equal(t, http.StatusOK, w.Code)
	desc := decode[api.EndpointDescription](t, w)
	assert.Equal(t, "/api/notifications/deliver", desc.Endpoint)
	assert.Equal(t, http.MethodPost, desc.Method)
}

func TestAgentNotifications(t *testing.T) {
	a := newTestAPI(t)
	jarvis := a.identity(t, "Jarvis")
	other := a.identity(t, "Friday")
	n1 := a.enqueue(t, jarvis.ID, "one")
	n2 := a.enqueue(t, jarvis.ID, "two")
	foreign := a.enqueue(t, other.ID, "not yours")

	w := a.do(t, http.MethodGet, "/api/agents/jarvis/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[api.AgentNotificationsResponse](t, w)
	assert.Equal(t, "Jarvis", resp.Agent)
	assert.Equal(t, 2, resp.Unread)

	w = a.do(t, http.MethodPost, "/api/agents/JARVIS/notifications/mark-read", map[string]any{
		"notification_ids": []uuid.UUID{n1.ID, foreign.ID},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	marked := decode[api.MarkReadResponse](t, w)
	assert.Equal(t, int64(1), marked.Marked)
	assert.Equal(t, "Marked 1 notification(s) as read", marked.Message)

	w = a.do(t, http.MethodGet, "/api/agents/Jarvis/notifications", nil)
	rows := decode[api.AgentNotificationsResponse](t, w).Notifications
	require.Len(t, rows, 1)
	assert.Equal(t, n2.ID, rows[0].ID)

	friday, err := a.queue.ListForIdentifier(t.Context(), "Friday", true, 0)
	require.NoError(t, err)
	assert.Len(t, friday, 1, "other agents' notifications are untouched")
}

func TestAgentNotificationsErrors(t *testing.T) {
	a := newTestAPI(t)
	a.identity(t, "Jarvis")

	w := a.do(t, http.MethodGet, "/api/agents/ultron/notifications", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Agent not found", decode[errorBody](t, w).Error)

	w = a.do(t, http.MethodPost, "/api/agents/ultron/notifications/mark-read",
		map[string]any{"notification_ids": []uuid.UUID{uuid.New()}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodPost, "/api/agents/jarvis/notifications/mark-read",
		map[string]any{"notification_ids": []uuid.UUID{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid notification_ids: too small", decode[errorBody](t, w).Error)
}
