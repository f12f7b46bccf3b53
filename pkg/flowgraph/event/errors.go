package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// PublishError reports an event that could not be delivered.
type PublishError struct {
	EventID   string
	EventType string
	Err       error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s (%s): %v", e.EventType, e.EventID, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error {
	return e.Err
}
