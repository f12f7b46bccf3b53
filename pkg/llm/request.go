package llm

import (
	"context"
	"time"
)

// Client generates text from a conversation.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// DocumentSource resolves document references to their bytes.
type DocumentSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// CompletionRequest configures a completion call.
type CompletionRequest struct {
	// Prompt configuration
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`

	// Model configuration. Empty Model and zero MaxTokens use the client
	// defaults. Temperature is always sent; zero requests deterministic
	// sampling.
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

// CompletionResponse is the output of a completion call.
type CompletionResponse struct {
	Content    string        `json:"content"`
	Usage      TokenUsage    `json:"usage"`
	Model      string        `json:"model"`
	StopReason string        `json:"stop_reason"`
	Duration   time.Duration `json:"duration"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}
