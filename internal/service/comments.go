package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/store"
)

const commentService = "comment_service"

// CommentResult is the outcome of PostComment.
type CommentResult struct {
	Comment             *domain.Comment `json:"comment"`
	SubscribersNotified int             `json:"subscribers_notified"`
	MentionsNotified    int             `json:"mentions_notified"`
}

// CommentService posts thread comments and fans them out to subscribers.
type CommentService struct {
	tx         store.TxRunner
	identities store.IdentityStore
	threads    store.ThreadStore
	comments   store.CommentStore
	registry   *SubscriptionRegistry
	queue      *NotificationQueue
	mentions   *MentionNotifier
	logger     *slog.Logger
}

// NewCommentService creates a CommentService. If logger is nil, slog.Default() is used.
func NewCommentService(
	tx store.TxRunner,
	identities store.IdentityStore,
	threads store.ThreadStore,
	comments store.CommentStore,
	registry *SubscriptionRegistry,
	queue *NotificationQueue,
	mentions *MentionNotifier,
	logger *slog.Logger,
) (*CommentService, error) {
	deps := []struct {
		name  string
		isNil bool
	}{
		{"tx", tx == nil},
		{"identities", identities == nil},
		{"threads", threads == nil},
		{"comments", comments == nil},
		{"registry", registry == nil},
		{"queue", queue == nil},
		{"mentions", mentions == nil},
	}
	for _, d := range deps {
		if d.isNil {
			return nil, nilDependency(commentService, d.name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{
		tx:         tx,
		identities: identities,
		threads:    threads,
		comments:   comments,
		registry:   registry,
		queue:      queue,
		mentions:   mentions,
		logger:     logger.With(slog.String("component", commentService)),
	}, nil
}

// PostComment stores a comment, subscribes its author to the thread, notifies
// every other subscriber and then everyone mentioned. The author is never
// notified about their own comment. Notification failures are logged only.
func (s *CommentService) PostComment(
	ctx context.Context,
	threadID, authorID uuid.UUID,
	message string,
) (*CommentResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if threadID == uuid.Nil {
		return nil, domain.NewValidationError("task_id", "is required", domain.ErrInvalidID)
	}
	if authorID == uuid.Nil {
		return nil, domain.NewValidationError("author_id", "is required", domain.ErrInvalidID)
	}
	if strings.TrimSpace(message) == "" {
		return nil, domain.NewValidationError("message", "is required", domain.ErrEmptyContent)
	}

	author, err := s.identities.GetByID(ctx, authorID)
	if err != nil {
		return nil, NewServiceError(commentService, "post_comment", "failed to load author", err)
	}
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, NewServiceError(commentService, "post_comment", "failed to load thread", err)
	}

	comment, err := domain.NewComment(thread.ID, author.Name, message)
	if err != nil {
		return nil, err
	}

	var subscribers []uuid.UUID
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.comments.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		registry := s.registry.WithTx(tx)
		if _, err := registry.Subscribe(ctx, thread.ID, author.ID); err != nil {
			return err
		}
		ids, err := registry.SubscriberIDs(ctx, thread.ID, author.ID)
		if err != nil {
			return err
		}
		subscribers = ids
		return nil
	})
	if err != nil {
		log.Error("failed to post comment",
			redact.ErrorAttr(err),
			slog.String("task_id", thread.ID.String()))
		return nil, NewServiceError(commentService, "post_comment", "failed to store comment", err)
	}

	preview, cut := truncate(comment.Message, CommentBodyLimit)
	if cut {
		preview += "..."
	}
	fanout := s.queue.EnqueueBulk(ctx, subscribers, NotificationTemplate{
		Kind:  domain.NotificationKindMention,
		Title: "New comment on: " + thread.Title,
		Body:  author.Name + ": " + preview,
		Metadata: domain.NotificationMetadata{
			TaskID:      thread.ID.String(),
			TaskTitle:   thread.Title,
			MentionedBy: author.Name,
			CommentID:   comment.ID.String(),
			Link:        thread.Link(),
		},
	})
	if err := fanout.Err(); err != nil {
		log.Warn("some subscriber notifications failed", redact.ErrorAttr(err))
	}

	mentioned := s.mentions.Notify(ctx, comment.Message, MentionContext{
		TaskID:      thread.ID.String(),
		TaskTitle:   thread.Title,
		MentionedBy: author.Name,
		MessageID:   comment.ID.String(),
		Link:        thread.Link(),
		Exclude:     author.ID,
	})

	log.Info("comment posted",
		slog.String("comment_id", comment.ID.String()),
		slog.String("task_id", thread.ID.String()),
		slog.Int("subscribers_notified", len(fanout.Created)),
		slog.Int("mentions_notified", len(mentioned.Created)))

	return &CommentResult{
		Comment:             comment,
		SubscribersNotified: len(fanout.Created),
		MentionsNotified:    len(mentioned.Created),
	}, nil
}

// ListComments returns the thread's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, threadID uuid.UUID) ([]domain.Comment, error) {
	if threadID == uuid.Nil {
		return nil, domain.NewValidationError("task_id", "is required", domain.ErrInvalidID)
	}
	comments, err := s.comments.ListByThread(ctx, threadID)
	if err != nil {
		return nil, NewServiceError(commentService, "list_comments", "failed to list comments", err)
	}
	return comments, nil
}
