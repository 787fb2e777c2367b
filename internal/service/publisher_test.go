package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/mission-control/internal/broadcast"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/events"
	"github.com/phrazzld/mission-control/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type frameSink struct {
	mu     sync.Mutex
	frames []string
}

func (s *frameSink) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, string(frame))
	return nil
}

func (s *frameSink) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

func reviewRequest(message string) service.PublishRequest {
	return service.PublishRequest{
		Kind:    domain.ActivityKindMention,
		Message: message,
		Actor:   "Bob",
		Context: &domain.ActivityContext{TaskID: "t1", TaskTitle: "Review PR"},
	}
}

func TestPublishNotifiesMentionedAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	alice := f.identity(t, "Alice")
	f.identity(t, "Bob")

	hub := broadcast.NewHub(broadcast.Config{HeartbeatInterval: time.Hour}, f.log)
	t.Cleanup(hub.Close)
	f.emitter.RegisterHandler(hub)

	sink := &frameSink{}
	conn := hub.NewConnection(sink)
	require.NoError(t, hub.Register(conn))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conn.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	activity, err := f.publisher.Publish(context.Background(), reviewRequest("@Alice please review"))
	require.NoError(t, err)

	rows := f.mailbox(t, alice.ID)
	require.Len(t, rows, 1)
	n := rows[0]
	assert.Equal(t, domain.NotificationKindMention, n.Kind)
	assert.Equal(t, "Mentioned in Review PR", n.Title)
	assert.Equal(t, "@Alice please review", n.Body)
	assert.Equal(t, "Bob", n.Metadata.MentionedBy)
	assert.Equal(t, "t1", n.Metadata.TaskID)
	assert.Equal(t, "/tasks/t1", n.Metadata.Link)
	assert.False(t, n.Read)
	assert.False(t, n.Delivered)

	recorded := f.recorder.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.TypeActivity, recorded[0].Type)
	assert.Equal(t, activity.ID, recorded[0].Activity.ID)

	require.Eventually(t, func() bool { return len(sink.Frames()) == 2 }, 2*time.Second, 5*time.Millisecond)
	frames := sink.Frames()
	assert.Equal(t, "data: {\"type\":\"connected\"}\n\n", frames[0])
	decoded, err := events.Decode([]byte(frames[1]))
	require.NoError(t, err)
	assert.Equal(t, activity.ID, decoded.Activity.ID)
	assert.Equal(t, "@Alice please review", decoded.Activity.Message)
}

func TestPublishMentionRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.identity(t, "Alice")

	t.Run("no task context", func(t *testing.T) {
		req := reviewRequest("@Alice look at this")
		req.Context = nil
		_, err := f.publisher.Publish(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, f.mailbox(t, alice.ID))
	})

	t.Run("context without title", func(t *testing.T) {
		req := reviewRequest("@Alice look at this")
		req.Context = &domain.ActivityContext{TaskID: "t1"}
		_, err := f.publisher.Publish(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, f.mailbox(t, alice.ID))
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := f.publisher.Publish(ctx, reviewRequest("@Mallory please review"))
		require.NoError(t, err)
		assert.Empty(t, f.mailbox(t, alice.ID))
	})

	t.Run("long body is truncated", func(t *testing.T) {
		long := "@Alice " + strings.Repeat("é", 300)
		_, err := f.publisher.Publish(ctx, reviewRequest(long))
		require.NoError(t, err)
		rows := f.mailbox(t, alice.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, service.MentionBodyLimit, len([]rune(rows[0].Body)))
	})

	assert.Len(t, f.recorder.Events(), 4)
}

func TestPublishRejectsInvalidActivity(t *testing.T) {
	f := newFixture(t)

	_, err := f.publisher.Publish(context.Background(), service.PublishRequest{
		Kind:    "rumour",
		Message: "hello",
		Actor:   "Bob",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.publisher.Publish(context.Background(), service.PublishRequest{
		Kind:    domain.ActivityKindTask,
		Message: "hello",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, f.recorder.Events())
}

func TestPublishSurvivesLookupFailure(t *testing.T) {
	f := newFixture(t)
	identities := &MockIdentityStore{}
	identities.On("FindByNames", mock.Anything, []string{"Alice"}).Return(nil, errors.New("database is locked"))
	f.wire(t, f.notifications, identities)

	activity, err := f.publisher.Publish(context.Background(), reviewRequest("@Alice please review"))
	require.NoError(t, err)
	require.NotNil(t, activity)

	assert.Len(t, f.recorder.Events(), 1)
	identities.AssertExpectations(t)
}

func TestPublishSurvivesEmitterFailure(t *testing.T) {
	f := newFixture(t)
	alice := f.identity(t, "Alice")
	f.emitter.RegisterHandler(events.HandlerFunc(func(context.Context, *events.Event) error {
		return errors.New("subscriber gone")
	}))

	activity, err := f.publisher.Publish(context.Background(), reviewRequest("@Alice please review"))
	require.NoError(t, err)
	require.NotNil(t, activity)
	assert.Len(t, f.mailbox(t, alice.ID), 1)
	assert.Contains(t, f.logs.String(), "failed to broadcast activity")
}
