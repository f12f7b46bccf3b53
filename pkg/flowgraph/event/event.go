package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the graph executor.
const (
	TypeRunStarted    = "run.started"
	TypeRunCompleted  = "run.completed"
	TypeRunFailed     = "run.failed"
	TypeNodeStarted   = "node.started"
	TypeNodeCompleted = "node.completed"
	TypeNodeFailed    = "node.failed"
	TypeForkStarted   = "fork.started"
	TypeJoinCompleted = "join.completed"
)

// Payload carries the details of a lifecycle event. Fields not relevant to
// an event type are left empty.
type Payload struct {
	RunID    string        `json:"run_id"`
	NodeID   string        `json:"node_id,omitempty"`
	Branches []string      `json:"branches,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Event is an immutable lifecycle notification.
type Event struct {
	id        string
	eventType string
	timestamp time.Time
	payload   Payload
}

// New creates an event of the given type with a fresh ID and the current time.
func New(eventType string, payload Payload) Event {
	return Event{
		id:        uuid.New().String(),
		eventType: eventType,
		timestamp: time.Now(),
		payload:   payload,
	}
}

// ID returns the unique event identifier.
func (e Event) ID() string { return e.id }

// Type returns the event type.
func (e Event) Type() string { return e.eventType }

// Timestamp returns when the event was created.
func (e Event) Timestamp() time.Time { return e.timestamp }

// Payload returns the event details.
func (e Event) Payload() Payload {
	p := e.payload
	p.Branches = append([]string(nil), e.payload.Branches...)
	return p
}

// Handler processes events delivered by a Bus.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
