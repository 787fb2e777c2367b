package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Identity is a stable reference to an agent or human participant. The display
// name may change; the ID does not.
type Identity struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	Avatar string    `json:"avatar_emoji" db:"avatar_emoji"`
	Status string    `json:"status" db:"status"`
}

// NewIdentity creates an identity with a fresh id.
func NewIdentity(name, avatar, status string) (*Identity, error) {
	i := &Identity{
		ID:     uuid.New(),
		Name:   strings.TrimSpace(name),
		Avatar: avatar,
		Status: status,
	}
	if i.Status == "" {
		i.Status = "idle"
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return i, nil
}

// Validate checks required fields.
func (i *Identity) Validate() error {
	if i.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if i.Name == "" {
		return NewValidationError("name", "is required", ErrEmptyContent)
	}
	return nil
}
