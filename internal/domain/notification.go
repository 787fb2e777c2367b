package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationKind classifies a Notification.
type NotificationKind string

// Possible notification kinds
const (
	NotificationKindMention       NotificationKind = "mention"
	NotificationKindTaskAssigned  NotificationKind = "task_assigned"
	NotificationKindTaskCompleted NotificationKind = "task_completed"
	NotificationKindSystem        NotificationKind = "system"
)

// Valid reports whether k is one of the known notification kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationKindMention,
		NotificationKindTaskAssigned,
		NotificationKindTaskCompleted,
		NotificationKindSystem:
		return true
	default:
		return false
	}
}

// NotificationMetadata is the structured context attached to a notification.
// It is stored as a JSON document.
type NotificationMetadata struct {
	TaskID      string `json:"task_id,omitempty"`
	TaskTitle   string `json:"task_title,omitempty"`
	MentionedBy string `json:"mentioned_by,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	CommentID   string `json:"comment_id,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Value implements driver.Valuer.
func (m NotificationMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL and empty values decode to the zero value.
func (m *NotificationMetadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = NotificationMetadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: unsupported metadata type %T", ErrInvalidFormat, src)
	}
	if len(raw) == 0 {
		*m = NotificationMetadata{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Notification is a per-recipient mailbox entry. Only Read and Delivered change
// after creation, and Delivered never goes back to false.
type Notification struct {
	ID          uuid.UUID            `json:"id" db:"id"`
	RecipientID uuid.UUID            `json:"user_id" db:"user_id"`
	Kind        NotificationKind     `json:"type" db:"type"`
	Title       string               `json:"title" db:"title"`
	Body        string               `json:"message" db:"message"`
	Read        bool                 `json:"read" db:"read"`
	Delivered   bool                 `json:"delivered" db:"delivered"`
	Metadata    NotificationMetadata `json:"metadata" db:"metadata"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at" db:"updated_at"`
}

// NewNotification creates an unread, undelivered notification.
func NewNotification(
	recipientID uuid.UUID,
	kind NotificationKind,
	title, body string,
	metadata NotificationMetadata,
) (*Notification, error) {
	now := time.Now().UTC()
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Kind:        kind,
		Title:       strings.TrimSpace(title),
		Body:        body,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks required fields.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if n.RecipientID == uuid.Nil {
		return NewValidationError("user_id", "is required", ErrInvalidID)
	}
	if !n.Kind.Valid() {
		return NewValidationError("type", "must be one of mention, task_assigned, task_completed, system", ErrInvalidKind)
	}
	if n.Title == "" {
		return NewValidationError("title", "is required", ErrEmptyContent)
	}
	if strings.TrimSpace(n.Body) == "" {
		return NewValidationError("message", "is required", ErrEmptyContent)
	}
	return nil
}

// MarkRead flips the read flag. It returns false if it was already set.
func (n *Notification) MarkRead(now time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	n.UpdatedAt = now.UTC()
	return true
}

// MarkDelivered flips the delivered flag. It returns false if it was already set;
// there is no way to clear it.
func (n *Notification) MarkDelivered(now time.Time) bool {
	if n.Delivered {
		return false
	}
	n.Delivered = true
	n.UpdatedAt = now.UTC()
	return true
}

// PendingNotification is an undelivered or unread notification joined with its
// recipient's display name, for system-wide views.
type PendingNotification struct {
	Notification
	RecipientName string `json:"recipient_name" db:"recipient_name"`
}
