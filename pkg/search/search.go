// Package search defines the web-search contract used by the analysts and a
// Tavily implementation of it.
//
// Search failures are not returned to stages as errors. Evidence renders
// results, empty result sets and failures alike as text so an analyst always
// has something to reason about.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Depth controls how thoroughly the service searches.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Topic narrows the kind of sources searched.
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
)

// DefaultMaxResults is used when Options.MaxResults is zero.
const DefaultMaxResults = 5

// ErrMissingAPIKey is returned by clients constructed without credentials.
var ErrMissingAPIKey = errors.New("TAVILY_API_KEY is not set in the environment variables")

// Options are per-query search parameters.
type Options struct {
	Depth      Depth
	Topic      Topic
	MaxResults int
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.Depth == "" {
		o.Depth = DepthAdvanced
	}
	if o.Topic == "" {
		o.Topic = TopicGeneral
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

// Result is a single search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client performs web searches.
type Client interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// FormatResults renders results as evidence text.
// Missing fields are rendered with placeholders.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "Source: %s - %s \n Content: %s \n\n",
			orDefault(r.Title, "No Title"),
			orDefault(r.URL, "No URL"),
			orDefault(r.Snippet, "No Content"))
	}
	return strings.TrimSpace(b.String())
}

// FormatError renders a failed search as evidence text.
func FormatError(err error) string {
	if errors.Is(err, ErrMissingAPIKey) {
		return "Error: " + ErrMissingAPIKey.Error() + "."
	}
	return fmt.Sprintf("Error occurred during search: %v", err)
}

// Run searches for query and returns the rendered outcome. The second return
// value is the search error, if any, for callers that want to log it; the
// text already describes it.
func Run(ctx context.Context, client Client, query string, opts Options) (string, error) {
	if client == nil {
		return FormatError(ErrMissingAPIKey), ErrMissingAPIKey
	}
	results, err := client.Search(ctx, query, opts)
	if err != nil {
		return FormatError(err), err
	}
	return FormatResults(results), nil
}

// Section is one item's contribution to an evidence blob.
type Section struct {
	Item string
	Text string
}

// Evidence concatenates sections under per-item headers.
func Evidence(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "\n--- Search for %s ---\n%s\n", s.Item, s.Text)
	}
	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
