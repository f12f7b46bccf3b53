// Package errors classifies failures of a run so callers can report them
// and choose an exit status. Nothing in a run is retried automatically;
// the category only tells the operator whether trying again could help.
package errors

import (
	"context"
	"errors"
)

// Category represents the kind of failure.
type Category int

const (
	// CategoryPermanent indicates retrying won't help.
	// Examples: authentication failures, invalid configuration.
	CategoryPermanent Category = iota

	// CategoryTransient indicates a later retry will likely succeed.
	// Examples: rate limits, timeouts, temporary network issues.
	CategoryTransient

	// CategoryInput indicates the submitted document or model output
	// could not be processed.
	CategoryInput

	// CategoryCanceled indicates the caller canceled the run.
	CategoryCanceled
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPermanent:
		return "permanent"
	case CategoryTransient:
		return "transient"
	case CategoryInput:
		return "input"
	case CategoryCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Categorize determines the kind of failure err represents.
// Unknown errors are permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	if errors.Is(err, context.Canceled) {
		return CategoryCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 408 || httpErr.StatusCode == 429:
			return CategoryTransient
		case httpErr.StatusCode >= 500:
			return CategoryTransient
		case httpErr.StatusCode == 400 || httpErr.StatusCode == 413 || httpErr.StatusCode == 422:
			return CategoryInput
		default:
			return CategoryPermanent
		}
	}

	var jsonErr *JSONParseError
	if errors.As(err, &jsonErr) {
		return CategoryInput
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	return CategoryPermanent
}

// IsRetryable reports whether running again later might succeed.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// ExitCode maps an error to a process exit status.
// nil maps to 0; each category has its own non-zero code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Categorize(err) {
	case CategoryTransient:
		return 75 // EX_TEMPFAIL
	case CategoryInput:
		return 65 // EX_DATAERR
	case CategoryCanceled:
		return 130
	default:
		return 1
	}
}
