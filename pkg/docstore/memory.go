package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryDoc struct {
	name        string
	contentType string
	data        []byte
	status      Status
	pending     int
}

// MemoryStore is an in-process Store.
// Documents become ready after a configurable number of polls.
type MemoryStore struct {
	mu           sync.Mutex
	docs         map[string]*memoryDoc
	pendingPolls int
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithPendingPolls makes new documents report pending for n polls.
func WithPendingPolls(n int) MemoryOption {
	return func(m *MemoryStore) { m.pendingPolls = n }
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{docs: make(map[string]*memoryDoc)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Upload implements Store.
func (m *MemoryStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := "mem://" + uuid.NewString() + "/" + name

	m.mu.Lock()
	defer m.mu.Unlock()

	doc := &memoryDoc{
		name:        name,
		contentType: contentType,
		data:        append([]byte(nil), data...),
		status:      StatusReady,
		pending:     m.pendingPolls,
	}
	if doc.pending > 0 {
		doc.status = StatusPending
	}
	m.docs[ref] = doc
	return ref, nil
}

// Poll implements Store.
func (m *MemoryStore) Poll(_ context.Context, ref string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[ref]
	if !ok {
		return StatusPending, ErrNotFound
	}
	if doc.status == StatusPending {
		if doc.pending > 0 {
			doc.pending--
			return StatusPending, nil
		}
		doc.status = StatusReady
	}
	return doc.status, nil
}

// Fetch implements Store.
func (m *MemoryStore) Fetch(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc.data...), nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[ref]; !ok {
		return ErrNotFound
	}
	delete(m.docs, ref)
	return nil
}

// SetStatus forces the status of a stored document.
func (m *MemoryStore) SetStatus(ref string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc, ok := m.docs[ref]; ok {
		doc.status = status
		doc.pending = 0
	}
}

// ContentType returns the content type a document was uploaded with.
func (m *MemoryStore) ContentType(ref string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[ref]
	if !ok {
		return "", false
	}
	return doc.contentType, true
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}
