package errors

import (
	"fmt"
	"time"
)

// HTTPError represents a failed call to an external HTTP service.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// JSONParseError indicates model output that was expected to be JSON but
// could not be parsed.
type JSONParseError struct {
	Input string
	Err   error
}

// Error implements the error interface.
func (e *JSONParseError) Error() string {
	return fmt.Sprintf("JSON parse error: %v", e.Err)
}

// Unwrap returns the decoding error.
func (e *JSONParseError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates an operation gave up waiting. Err is the failure
// the deadline caused, if any.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Err       error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timeout after %s: %s: %v", e.Duration, e.Operation, e.Err)
	}
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}

// Unwrap returns the underlying failure.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}
