package argus

import (
	"errors"
	"fmt"
)

// ErrNoDocument is returned when a run is started without a document.
var ErrNoDocument = errors.New("document reference is empty")

// StageError reports the stage a failed run is attributed to.
type StageError struct {
	// Stage is the name of the originating stage, empty when the failure
	// happened outside any stage.
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("pipeline: %v", e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// ConfigError reports invalid settings found at startup.
type ConfigError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

// Unwrap returns the joined validation errors.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
