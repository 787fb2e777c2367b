package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phrazzld/mission-control/internal/domain"
)

// Type distinguishes the variants of Event.
type Type string

// Possible event types
const (
	TypeConnected Type = "connected"
	TypeHeartbeat Type = "heartbeat"
	TypeActivity  Type = "activity"
)

// Valid reports whether t is one of the known event types.
func (t Type) Valid() bool {
	switch t {
	case TypeConnected, TypeHeartbeat, TypeActivity:
		return true
	default:
		return false
	}
}

// ErrInvalidEvent is returned when an event fails to encode or decode.
var ErrInvalidEvent = errors.New("invalid event")

// Event is the payload written to live-stream clients. Activity is set only
// for TypeActivity.
type Event struct {
	Type     Type             `json:"type"`
	Activity *domain.Activity `json:"activity,omitempty"`
}

// Connected returns the sentinel sent once when a client joins.
func Connected() *Event { return &Event{Type: TypeConnected} }

// Heartbeat returns the periodic keep-alive sentinel.
func Heartbeat() *Event { return &Event{Type: TypeHeartbeat} }

// NewActivityEvent wraps a published activity.
func NewActivityEvent(a *domain.Activity) *Event {
	return &Event{Type: TypeActivity, Activity: a}
}

// Validate checks that the variant is known and carries the right payload.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.Type == TypeActivity && e.Activity == nil {
		return fmt.Errorf("%w: activity event without activity", ErrInvalidEvent)
	}
	if e.Type != TypeActivity && e.Activity != nil {
		return fmt.Errorf("%w: %s event must not carry an activity", ErrInvalidEvent, e.Type)
	}
	return nil
}

var (
	framePrefix = []byte("data: ")
	frameSuffix = []byte("\n\n")
)

// Encode renders e as a single server-sent-events frame: "data: <json>\n\n".
func Encode(e *Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	frame := make([]byte, 0, len(framePrefix)+len(payload)+len(frameSuffix))
	frame = append(frame, framePrefix...)
	frame = append(frame, payload...)
	frame = append(frame, frameSuffix...)
	return frame, nil
}

// Decode parses a frame produced by Encode. The "data: " prefix and trailing
// blank line are optional, so raw JSON is accepted too.
func Decode(frame []byte) (*Event, error) {
	payload := bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(frame), bytes.TrimSpace(framePrefix)))
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
