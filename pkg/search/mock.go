package search

import (
	"context"
	"sync"
)

// MockClient is a scriptable Client for tests. Results and errors are keyed
// by query; unknown queries get the default results. Safe for concurrent use.
type MockClient struct {
	mu       sync.Mutex
	results  map[string][]Result
	errs     map[string]error
	fallback []Result
	err      error
	queries  []Query
}

// Query records one Search call.
type Query struct {
	Text    string
	Options Options
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock answering every query with results.
func NewMockClient(results ...Result) *MockClient {
	return &MockClient{
		results:  make(map[string][]Result),
		errs:     make(map[string]error),
		fallback: results,
	}
}

// On sets the results for query.
func (m *MockClient) On(query string, results ...Result) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = results
	return m
}

// FailOn makes query fail with err.
func (m *MockClient) FailOn(query string, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[query] = err
	return m
}

// WithError makes every query fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Search implements Client.
func (m *MockClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, Query{Text: query, Options: opts})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if err, ok := m.errs[query]; ok {
		return nil, err
	}
	if r, ok := m.results[query]; ok {
		return r, nil
	}
	return m.fallback, nil
}

// Queries returns the recorded calls in arrival order.
func (m *MockClient) Queries() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Query, len(m.queries))
	copy(out, m.queries)
	return out
}
