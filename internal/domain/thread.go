package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Thread is the discussion and notification scope anchored to one task.
type Thread struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Assignee  string    `json:"assignee,omitempty" db:"assignee"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Link returns the dashboard path of the task.
func (t *Thread) Link() string {
	return "/tasks/" + t.ID.String()
}

// NewThread creates an unassigned thread in the inbox status.
func NewThread(title string) (*Thread, error) {
	now := time.Now().UTC()
	t := &Thread{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(title),
		Status:    "inbox",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Title == "" {
		return nil, NewValidationError("title", "is required", ErrEmptyContent)
	}
	return t, nil
}

// Comment is a message posted on a thread.
type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ThreadID  uuid.UUID `json:"task_id" db:"task_id"`
	Author    string    `json:"agent_name" db:"agent_name"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewComment validates and builds a comment.
func NewComment(threadID uuid.UUID, author, message string) (*Comment, error) {
	c := &Comment{
		ID:        uuid.New(),
		ThreadID:  threadID,
		Author:    strings.TrimSpace(author),
		Message:   strings.TrimSpace(message),
		CreatedAt: time.Now().UTC(),
	}
	if c.ThreadID == uuid.Nil {
		return nil, NewValidationError("task_id", "is required", ErrInvalidID)
	}
	if c.Author == "" {
		return nil, NewValidationError("author", "is required", ErrEmptyContent)
	}
	if c.Message == "" {
		return nil, NewValidationError("message", "is required", ErrEmptyContent)
	}
	return c, nil
}
