// Package docstore holds source documents for analysis runs.
//
// A Store accepts document bytes and returns an opaque reference once the
// document is durably stored. Some backends make documents available
// asynchronously, so callers poll readiness with WaitReady before using the
// reference.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status is the readiness state of a stored document.
type Status int

const (
	// StatusPending means the document is not yet usable.
	StatusPending Status = iota
	// StatusReady means the document can be fetched.
	StatusReady
	// StatusFailed means the backend gave up processing the document.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DefaultPollInterval is the readiness polling interval.
const DefaultPollInterval = 2 * time.Second

var (
	// ErrProcessingFailed is returned when a document reaches StatusFailed.
	ErrProcessingFailed = errors.New("document processing failed")

	// ErrNotFound is returned for unknown references.
	ErrNotFound = errors.New("document not found")
)

// Store is a document store.
type Store interface {
	// Upload stores data and returns its reference.
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// Poll reports the readiness of a reference.
	Poll(ctx context.Context, ref string) (Status, error)

	// Fetch returns the stored bytes.
	Fetch(ctx context.Context, ref string) ([]byte, error)

	// Delete removes a stored document.
	Delete(ctx context.Context, ref string) error
}

// WaitReady polls ref every interval until it is ready. It returns
// ErrProcessingFailed when the document fails and the context error when
// ctx ends first. Statuses other than ready and failed keep polling.
func WaitReady(ctx context.Context, store Store, ref string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := store.Poll(ctx, ref)
		if err != nil {
			return fmt.Errorf("poll %s: %w", ref, err)
		}
		switch status {
		case StatusReady:
			return nil
		case StatusFailed:
			return fmt.Errorf("%s: %w", ref, ErrProcessingFailed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// UploadFile reads the file at path, uploads it, and waits until it is
// ready. The returned reference is usable by every stage.
func UploadFile(ctx context.Context, store Store, path, contentType string, interval time.Duration) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	ref, err := store.Upload(ctx, filepath.Base(path), data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload document: %w", err)
	}

	if err := WaitReady(ctx, store, ref, interval); err != nil {
		return ref, err
	}
	return ref, nil
}
