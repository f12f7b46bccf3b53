package llm

import (
	"context"
	"sync"
)

// MockClient is a scriptable Client for tests.
//
// Responses are returned in order and cycle when exhausted. A configured
// error or CompleteFunc takes precedence over responses. All methods are
// safe for concurrent use.
type MockClient struct {
	mu           sync.Mutex
	responses    []string
	index        int
	err          error
	completeFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Calls records every request received. Read it only after the calls
	// under test have returned.
	Calls []CompletionRequest
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock that always answers response.
func NewMockClient(response string) *MockClient {
	return &MockClient{responses: []string{response}}
}

// WithResponses replaces the scripted responses.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.index = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithCompleteFunc delegates every call to fn.
func (m *MockClient) WithCompleteFunc(fn func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.completeFunc
	if fn == nil && m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}
	var content string
	if fn == nil && len(m.responses) > 0 {
		content = m.responses[m.index%len(m.responses)]
		m.index++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	input := len(req.System)/4 + 1
	for _, msg := range req.Messages {
		input += len(msg.Text()) / 4
	}
	output := len(content)/4 + 1
	return &CompletionResponse{
		Content:    content,
		Model:      req.Model,
		StopReason: "end_turn",
		Usage: TokenUsage{
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		},
	}, nil
}

// CallCount returns the number of calls received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil if none.
func (m *MockClient) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	last := m.Calls[len(m.Calls)-1]
	return &last
}

// Reset clears recorded calls and restarts the response sequence.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.index = 0
}
