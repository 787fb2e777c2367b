package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/phrazzld/mission-control/internal/store"
)

const assignmentService = "assignment_service"

// StatusDone is the board column a completed thread moves to.
const StatusDone = "done"

// AssignmentResult is the outcome of Assign.
type AssignmentResult struct {
	// Assigned is false when the assignee name matched nobody.
	Assigned     bool                 `json:"assigned"`
	Assignee     *domain.Identity     `json:"assignee,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

// CompletionResult is the outcome of Complete.
type CompletionResult struct {
	SubscribersNotified int `json:"subscribers_notified"`
}

// AssignmentService runs the notification side effects of assigning and
// completing a task.
type AssignmentService struct {
	tx         store.TxRunner
	identities store.IdentityStore
	threads    store.ThreadStore
	registry   *SubscriptionRegistry
	queue      *NotificationQueue
	logger     *slog.Logger
}

// NewAssignmentService creates an AssignmentService. If logger is nil,
// slog.Default() is used.
func NewAssignmentService(
	tx store.TxRunner,
	identities store.IdentityStore,
	threads store.ThreadStore,
	registry *SubscriptionRegistry,
	queue *NotificationQueue,
	logger *slog.Logger,
) (*AssignmentService, error) {
	switch {
	case tx == nil:
		return nil, nilDependency(assignmentService, "tx")
	case identities == nil:
		return nil, nilDependency(assignmentService, "identities")
	case threads == nil:
		return nil, nilDependency(assignmentService, "threads")
	case registry == nil:
		return nil, nilDependency(assignmentService, "registry")
	case queue == nil:
		return nil, nilDependency(assignmentService, "queue")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentService{
		tx:         tx,
		identities: identities,
		threads:    threads,
		registry:   registry,
		queue:      queue,
		logger:     logger.With(slog.String("component", assignmentService)),
	}, nil
}

// Assign records assigneeName on the thread, notifies the assignee and
// subscribes them. An unknown assignee only logs a warning and changes nothing.
func (s *AssignmentService) Assign(ctx context.Context, threadID uuid.UUID, assigneeName string) (*AssignmentResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	assigneeName = strings.TrimSpace(assigneeName)
	if threadID == uuid.Nil {
		return nil, domain.NewValidationError("task_id", "is required", domain.ErrInvalidID)
	}
	if assigneeName == "" {
		return nil, domain.NewValidationError("assignee", "is required", domain.ErrEmptyContent)
	}

	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, NewServiceError(assignmentService, "assign", "failed to load thread", err)
	}

	assignee, err := s.identities.FindByName(ctx, assigneeName)
	if errors.Is(err, store.ErrIdentityNotFound) {
		log.Warn("assignee not found, skipping assignment notification",
			slog.String("assignee", assigneeName),
			slog.String("task_id", thread.ID.String()))
		return &AssignmentResult{}, nil
	}
	if err != nil {
		return nil, NewServiceError(assignmentService, "assign", "failed to resolve assignee", err)
	}

	var notification *domain.Notification
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.threads.WithTx(tx).SetAssignee(ctx, thread.ID, assignee.Name); err != nil {
			return err
		}
		n, err := s.queue.WithTx(tx).Enqueue(ctx, EnqueueRequest{
			RecipientID: assignee.ID,
			NotificationTemplate: NotificationTemplate{
				Kind:  domain.NotificationKindTaskAssigned,
				Title: "New Task Assigned",
				Body:  "You've been assigned to: " + thread.Title,
				Metadata: domain.NotificationMetadata{
					TaskID:    thread.ID.String(),
					TaskTitle: thread.Title,
					Link:      thread.Link(),
				},
			},
		})
		if err != nil {
			return err
		}
		notification = n
		_, err = s.registry.WithTx(tx).Subscribe(ctx, thread.ID, assignee.ID)
		return err
	})
	if err != nil {
		log.Error("failed to assign task",
			redact.ErrorAttr(err),
			slog.String("task_id", thread.ID.String()))
		return nil, NewServiceError(assignmentService, "assign", "failed to record assignment", err)
	}

	log.Info("task assigned",
		slog.String("task_id", thread.ID.String()),
		slog.String("assignee", assignee.Name))
	return &AssignmentResult{Assigned: true, Assignee: assignee, Notification: notification}, nil
}

// Complete moves the thread to done and notifies every subscriber except the
// actor. The actor name may be unknown, in which case nobody is excluded.
func (s *AssignmentService) Complete(ctx context.Context, threadID uuid.UUID, actorName string) (*CompletionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actorName = strings.TrimSpace(actorName)
	if threadID == uuid.Nil {
		return nil, domain.NewValidationError("task_id", "is required", domain.ErrInvalidID)
	}
	if actorName == "" {
		return nil, domain.NewValidationError("actor", "is required", domain.ErrEmptyContent)
	}

	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, NewServiceError(assignmentService, "complete", "failed to load thread", err)
	}

	exclude := uuid.Nil
	actor, err := s.identities.FindByName(ctx, actorName)
	switch {
	case err == nil:
		exclude = actor.ID
		actorName = actor.Name
	case !errors.Is(err, store.ErrIdentityNotFound):
		return nil, NewServiceError(assignmentService, "complete", "failed to resolve actor", err)
	}

	if err := s.threads.SetStatus(ctx, thread.ID, StatusDone); err != nil {
		return nil, NewServiceError(assignmentService, "complete", "failed to update status", err)
	}

	recipients, err := s.registry.SubscriberIDs(ctx, thread.ID, exclude)
	if err != nil {
		return nil, err
	}

	result := s.queue.EnqueueBulk(ctx, recipients, NotificationTemplate{
		Kind:  domain.NotificationKindTaskCompleted,
		Title: "Task completed: " + thread.Title,
		Body:  fmt.Sprintf("%s completed %s", actorName, thread.Title),
		Metadata: domain.NotificationMetadata{
			TaskID:      thread.ID.String(),
			TaskTitle:   thread.Title,
			MentionedBy: actorName,
			Link:        thread.Link(),
		},
	})
	if err := result.Err(); err != nil {
		log.Warn("some completion notifications failed", redact.ErrorAttr(err))
	}

	log.Info("task completed",
		slog.String("task_id", thread.ID.String()),
		slog.Int("subscribers_notified", len(result.Created)))
	return &CompletionResult{SubscribersNotified: len(result.Created)}, nil
}
