package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	fgerrors "github.com/randalmurphal/argus/pkg/flowgraph/errors"
)

// DefaultTavilyEndpoint is the Tavily search API URL.
const DefaultTavilyEndpoint = "https://api.tavily.com/search"

// TavilyClient implements Client against the Tavily search API.
type TavilyClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

var _ Client = (*TavilyClient)(nil)

// TavilyOption configures TavilyClient.
type TavilyOption func(*TavilyClient)

// WithEndpoint overrides the API URL.
func WithEndpoint(url string) TavilyOption {
	return func(c *TavilyClient) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) TavilyOption {
	return func(c *TavilyClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewTavilyClient creates a client authenticated with apiKey.
// An empty key yields a client whose searches fail with ErrMissingAPIKey.
func NewTavilyClient(apiKey string, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		apiKey:     apiKey,
		endpoint:   DefaultTavilyEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	Topic       string `json:"topic"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements Client.
func (c *TavilyClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts = opts.withDefaults()

	body, err := json.Marshal(tavilyRequest{
		Query:       query,
		SearchDepth: string(opts.Depth),
		Topic:       string(opts.Topic),
		MaxResults:  opts.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tavily: %w", &fgerrors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
			Endpoint:   c.endpoint,
		})
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}
