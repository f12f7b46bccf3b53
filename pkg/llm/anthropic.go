package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	fgerrors "github.com/randalmurphal/argus/pkg/flowgraph/errors"
)

// Defaults for AnthropicClient.
const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

// AnthropicClient implements Client using the Anthropic Messages API.
// Document parts are resolved through a DocumentSource and sent inline;
// resolved documents are cached for the lifetime of the client.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	source    DocumentSource

	mu   sync.Mutex
	docs map[string][]byte
}

var _ Client = (*AnthropicClient)(nil)

// AnthropicOption configures AnthropicClient.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	model      string
	maxTokens  int
	source     DocumentSource
	requestOps []option.RequestOption
}

// WithModel sets the default model.
func WithModel(model string) AnthropicOption {
	return func(c *anthropicConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens sets the default output token limit.
func WithMaxTokens(n int) AnthropicOption {
	return func(c *anthropicConfig) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithDocumentSource sets the resolver for document parts.
func WithDocumentSource(source DocumentSource) AnthropicOption {
	return func(c *anthropicConfig) { c.source = source }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) {
		c.requestOps = append(c.requestOps, option.WithBaseURL(url))
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) AnthropicOption {
	return func(c *anthropicConfig) {
		c.requestOps = append(c.requestOps, option.WithHTTPClient(client))
	}
}

// WithMaxRetries sets how often the SDK retries transient failures.
func WithMaxRetries(n int) AnthropicOption {
	return func(c *anthropicConfig) {
		c.requestOps = append(c.requestOps, option.WithMaxRetries(n))
	}
}

// NewAnthropicClient creates a client authenticated with apiKey.
func NewAnthropicClient(apiKey string, opts ...AnthropicOption) *AnthropicClient {
	cfg := anthropicConfig{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	requestOps := append([]option.RequestOption{option.WithAPIKey(apiKey)}, cfg.requestOps...)
	return &AnthropicClient{
		client:    anthropic.NewClient(requestOps...),
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
		source:    cfg.source,
		docs:      make(map[string][]byte),
	}
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	params, err := c.buildParams(ctx, req)
	if err != nil {
		return nil, err
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("anthropic: %w", &fgerrors.HTTPError{
				StatusCode: apiErr.StatusCode,
				Message:    err.Error(),
				Endpoint:   "/v1/messages",
			})
		}
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	input := int(message.Usage.InputTokens)
	output := int(message.Usage.OutputTokens)
	return &CompletionResponse{
		Content:    content.String(),
		Model:      string(message.Model),
		StopReason: string(message.StopReason),
		Usage: TokenUsage{
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		},
		Duration: time.Since(start),
	}, nil
}

// buildParams converts a request into SDK parameters.
func (c *AnthropicClient) buildParams(ctx context.Context, req CompletionRequest) (anthropic.MessageNewParams, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	for i, msg := range req.Messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			block, err := c.convertPart(ctx, part)
			if err != nil {
				return params, fmt.Errorf("message %d: %w", i, err)
			}
			blocks = append(blocks, block)
		}

		switch msg.Role {
		case RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		default:
			return params, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
	}

	return params, nil
}

func (c *AnthropicClient) convertPart(ctx context.Context, part Part) (anthropic.ContentBlockParamUnion, error) {
	switch part.Kind {
	case PartText:
		return anthropic.NewTextBlock(part.Text), nil
	case PartDocument:
		if part.Document == nil {
			return anthropic.ContentBlockParamUnion{}, errors.New("document part without reference")
		}
		data, err := c.document(ctx, part.Document.Ref)
		if err != nil {
			return anthropic.ContentBlockParamUnion{}, err
		}
		switch part.Document.MediaType {
		case MediaTypePDF, "":
			return anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
				Data: base64.StdEncoding.EncodeToString(data),
			}), nil
		case MediaTypeText:
			return anthropic.NewDocumentBlock(anthropic.PlainTextSourceParam{
				Data: string(data),
			}), nil
		default:
			return anthropic.ContentBlockParamUnion{}, fmt.Errorf("unsupported document type %q", part.Document.MediaType)
		}
	default:
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("unknown part kind %q", part.Kind)
	}
}

// document resolves ref through the configured source, caching the bytes.
func (c *AnthropicClient) document(ctx context.Context, ref string) ([]byte, error) {
	c.mu.Lock()
	data, ok := c.docs[ref]
	c.mu.Unlock()
	if ok {
		return data, nil
	}

	if c.source == nil {
		return nil, fmt.Errorf("document %s: no document source configured", ref)
	}

	data, err := c.source.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", ref, err)
	}

	c.mu.Lock()
	c.docs[ref] = data
	c.mu.Unlock()
	return data, nil
}
