package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/mention"
	"github.com/phrazzld/mission-control/internal/platform/logger"
)

const mentionService = "mention_notifier"

// Body length limits for generated notifications, in characters.
const (
	MentionBodyLimit = 200
	CommentBodyLimit = 150
)

// MentionContext describes where a mention happened.
type MentionContext struct {
	TaskID      string
	TaskTitle   string
	MentionedBy string
	MessageID   string
	// Link defaults to the task's board link when empty.
	Link string
	// Exclude is left out of the recipients, typically the author.
	Exclude uuid.UUID
}

// MentionNotifier turns @name tokens into mention notifications.
type MentionNotifier struct {
	identities mention.IdentityLookup
	queue      *NotificationQueue
	logger     *slog.Logger
}

// NewMentionNotifier creates a MentionNotifier. If logger is nil, slog.Default() is used.
func NewMentionNotifier(identities mention.IdentityLookup, queue *NotificationQueue, logger *slog.Logger) (*MentionNotifier, error) {
	if identities == nil {
		return nil, nilDependency(mentionService, "identities")
	}
	if queue == nil {
		return nil, nilDependency(mentionService, "queue")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MentionNotifier{
		identities: identities,
		queue:      queue,
		logger:     logger.With(slog.String("component", mentionService)),
	}, nil
}

// Notify enqueues one mention notification per resolved identity in text.
// Unknown names and lookup failures produce no notifications and no error.
func (m *MentionNotifier) Notify(ctx context.Context, text string, mc MentionContext) BulkResult {
	tokens := mention.Extract(text)
	if len(tokens) == 0 {
		return BulkResult{}
	}

	identities := mention.Resolve(ctx, m.identities, tokens)
	recipients := make([]uuid.UUID, 0, len(identities))
	for _, identity := range identities {
		if identity.ID == mc.Exclude {
			continue
		}
		recipients = append(recipients, identity.ID)
	}

	log := logger.FromContextOrDefault(ctx, m.logger)
	if len(recipients) == 0 {
		log.Debug("no mentioned identities resolved",
			slog.Int("token_count", len(tokens)),
			slog.String("task_id", mc.TaskID))
		return BulkResult{}
	}

	title := "a task"
	if mc.TaskTitle != "" {
		title = mc.TaskTitle
	}
	link := mc.Link
	if link == "" && mc.TaskID != "" {
		link = "/tasks/" + mc.TaskID
	}
	body, _ := truncate(text, MentionBodyLimit)

	result := m.queue.EnqueueBulk(ctx, recipients, NotificationTemplate{
		Kind:  domain.NotificationKindMention,
		Title: "Mentioned in " + title,
		Body:  body,
		Metadata: domain.NotificationMetadata{
			TaskID:      mc.TaskID,
			TaskTitle:   mc.TaskTitle,
			MentionedBy: mc.MentionedBy,
			MessageID:   mc.MessageID,
			Link:        link,
		},
	})

	log.Info("mention notifications created",
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Failures)),
		slog.String("task_id", mc.TaskID))
	return result
}

// truncate cuts s to at most n characters and reports whether it cut anything.
func truncate(s string, n int) (string, bool) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
