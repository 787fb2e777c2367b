package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/events"
	"github.com/phrazzld/mission-control/internal/mention"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
)

const publisherService = "activity_publisher"

// PublishRequest is the input to ActivityPublisher.Publish.
type PublishRequest struct {
	Kind        domain.ActivityKind
	Message     string
	Actor       string
	ActorAvatar string
	Context     *domain.ActivityContext
}

// ActivityPublisher validates activities, notifies mentioned identities and
// broadcasts the activity to live clients.
type ActivityPublisher struct {
	mentions *MentionNotifier
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewActivityPublisher creates an ActivityPublisher. If logger is nil,
// slog.Default() is used.
func NewActivityPublisher(mentions *MentionNotifier, emitter events.EventEmitter, logger *slog.Logger) (*ActivityPublisher, error) {
	if mentions == nil {
		return nil, nilDependency(publisherService, "mentions")
	}
	if emitter == nil {
		return nil, nilDependency(publisherService, "emitter")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityPublisher{
		mentions: mentions,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", publisherService)),
	}, nil
}

// Publish creates the activity and broadcasts it. Mention notifications are
// created only when the message has the sigil and the context names a task;
// their failures, like broadcast failures, are logged and never returned.
func (p *ActivityPublisher) Publish(ctx context.Context, req PublishRequest) (*domain.Activity, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	activity, err := domain.NewActivity(req.Kind, req.Message, req.Actor, req.ActorAvatar, req.Context)
	if err != nil {
		log.Debug("rejected activity", redact.ErrorAttr(err))
		return nil, err
	}

	if mention.Contains(activity.Message) && activity.Context.HasTask() {
		result := p.mentions.Notify(ctx, activity.Message, MentionContext{
			TaskID:      activity.Context.TaskID,
			TaskTitle:   activity.Context.TaskTitle,
			MentionedBy: activity.Actor,
			Link:        "/tasks/" + activity.Context.TaskID,
		})
		if err := result.Err(); err != nil {
			log.Warn("some mention notifications failed",
				redact.ErrorAttr(err),
				slog.String("activity_id", activity.ID.String()))
		}
	}

	if err := p.emitter.EmitEvent(ctx, events.NewActivityEvent(activity)); err != nil {
		log.Warn("failed to broadcast activity",
			redact.ErrorAttr(err),
			slog.String("activity_id", activity.ID.String()))
	}

	log.Debug("activity published",
		slog.String("activity_id", activity.ID.String()),
		slog.String("kind", string(activity.Kind)))
	return activity, nil
}
