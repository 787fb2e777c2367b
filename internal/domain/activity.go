package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivityKind classifies an Activity.
type ActivityKind string

// Possible activity kinds
const (
	ActivityKindTask    ActivityKind = "task"
	ActivityKindAgent   ActivityKind = "agent"
	ActivityKindSystem  ActivityKind = "system"
	ActivityKindMention ActivityKind = "mention"
)

// Valid reports whether k is one of the known activity kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityKindTask, ActivityKindAgent, ActivityKindSystem, ActivityKindMention:
		return true
	default:
		return false
	}
}

// ActivityContext links an activity to the task it concerns.
type ActivityContext struct {
	TaskID         string   `json:"task_id,omitempty"`
	TaskTitle      string   `json:"task_title,omitempty"`
	MentionedUsers []string `json:"mentioned_users,omitempty"`
}

// HasTask reports whether both the task id and title are present.
func (c *ActivityContext) HasTask() bool {
	return c != nil && c.TaskID != "" && c.TaskTitle != ""
}

// Activity is an immutable event describing something that happened on the board.
// It is broadcast to live clients exactly once.
type Activity struct {
	ID          uuid.UUID        `json:"id"`
	Kind        ActivityKind     `json:"kind"`
	Message     string           `json:"message"`
	Actor       string           `json:"actor"`
	ActorAvatar string           `json:"actor_avatar,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Context     *ActivityContext `json:"context,omitempty"`
}

// NewActivity validates the inputs and returns a fully constructed Activity with a
// fresh id and the current UTC time. The context is copied so later changes by
// the caller cannot leak into the record.
func NewActivity(
	kind ActivityKind,
	message, actor, actorAvatar string,
	actx *ActivityContext,
) (*Activity, error) {
	a := &Activity{
		ID:          uuid.New(),
		Kind:        kind,
		Message:     message,
		Actor:       strings.TrimSpace(actor),
		ActorAvatar: actorAvatar,
		CreatedAt:   time.Now().UTC(),
	}
	if actx != nil {
		c := *actx
		if actx.MentionedUsers != nil {
			c.MentionedUsers = append([]string(nil), actx.MentionedUsers...)
		}
		a.Context = &c
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks required fields.
func (a *Activity) Validate() error {
	if a.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(a.Message) == "" {
		return NewValidationError("message", "is required", ErrEmptyContent)
	}
	if a.Actor == "" {
		return NewValidationError("actor", "is required", ErrEmptyContent)
	}
	if a.Kind == "" {
		return NewValidationError("kind", "is required", ErrInvalidKind)
	}
	if !a.Kind.Valid() {
		return NewValidationError("kind", "must be one of task, agent, system, mention", ErrInvalidKind)
	}
	return nil
}
