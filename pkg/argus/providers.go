package argus

import (
	"context"
	"fmt"

	"github.com/randalmurphal/argus/pkg/docstore"
	"github.com/randalmurphal/argus/pkg/flowgraph/registry"
	"github.com/randalmurphal/argus/pkg/llm"
	"github.com/randalmurphal/argus/pkg/search"
)

// Provider names accepted in Settings.
const (
	ProviderAnthropic = "anthropic"
	ProviderTavily    = "tavily"
	ProviderS3        = "s3"
	ProviderMemory    = "memory"
	ProviderOffline   = "offline"
)

// LLMFactory creates a generation client. docs resolves document parts.
type LLMFactory func(s Settings, docs llm.DocumentSource) (llm.Client, error)

// SearchFactory creates a search client.
type SearchFactory func(s Settings) (search.Client, error)

// StoreFactory creates a document store.
type StoreFactory func(ctx context.Context, s Settings) (docstore.Store, error)

var (
	llmProviders    = registry.New[string, LLMFactory]()
	searchProviders = registry.New[string, SearchFactory]()
	storeProviders  = registry.New[string, StoreFactory]()
)

func init() {
	llmProviders.MustRegister(ProviderAnthropic, func(s Settings, docs llm.DocumentSource) (llm.Client, error) {
		opts := []llm.AnthropicOption{
			llm.WithModel(s.Model),
			llm.WithMaxTokens(s.MaxTokens),
			llm.WithDocumentSource(docs),
			llm.WithMaxRetries(0),
		}
		if s.AnthropicURL != "" {
			opts = append(opts, llm.WithBaseURL(s.AnthropicURL))
		}
		return llm.NewAnthropicClient(s.AnthropicAPIKey, opts...), nil
	})
	llmProviders.MustRegister(ProviderOffline, func(Settings, llm.DocumentSource) (llm.Client, error) {
		return NewOfflineClient(), nil
	})

	searchProviders.MustRegister(ProviderTavily, func(s Settings) (search.Client, error) {
		return search.NewTavilyClient(s.TavilyAPIKey, search.WithEndpoint(s.SearchEndpoint)), nil
	})
	searchProviders.MustRegister(ProviderOffline, func(Settings) (search.Client, error) {
		return search.NewMockClient(), nil
	})

	storeProviders.MustRegister(ProviderS3, func(ctx context.Context, s Settings) (docstore.Store, error) {
		return docstore.NewS3StoreFromConfig(ctx, s.S3)
	})
	storeProviders.MustRegister(ProviderMemory, func(context.Context, Settings) (docstore.Store, error) {
		return docstore.NewMemoryStore(), nil
	})
}

// RegisterLLMProvider makes a generation client selectable by name.
func RegisterLLMProvider(name string, f LLMFactory) error { return llmProviders.Register(name, f) }

// RegisterSearchProvider makes a search client selectable by name.
func RegisterSearchProvider(name string, f SearchFactory) error {
	return searchProviders.Register(name, f)
}

// RegisterStoreProvider makes a document store selectable by name.
func RegisterStoreProvider(name string, f StoreFactory) error {
	return storeProviders.Register(name, f)
}

// Runtime holds the collaborators built from Settings.
type Runtime struct {
	Store  docstore.Store
	LLM    llm.Client
	Search search.Client
}

// NewRuntime validates s and builds the configured collaborators.
func NewRuntime(ctx context.Context, s Settings) (*Runtime, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	storeFactory, err := storeProviders.Lookup(s.StoreProvider)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("store provider: %w", err)}
	}
	store, err := storeFactory(ctx, s)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("store provider %s: %w", s.StoreProvider, err)}
	}

	llmFactory, err := llmProviders.Lookup(s.LLMProvider)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("llm provider: %w", err)}
	}
	client, err := llmFactory(s, store)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("llm provider %s: %w", s.LLMProvider, err)}
	}

	searchFactory, err := searchProviders.Lookup(s.SearchProvider)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("search provider: %w", err)}
	}
	searcher, err := searchFactory(s)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("search provider %s: %w", s.SearchProvider, err)}
	}

	return &Runtime{Store: store, LLM: client, Search: searcher}, nil
}

// Deps returns the stage dependencies for rt under s.
func (s Settings) Deps(rt *Runtime) Deps {
	return Deps{
		LLM:              rt.LLM,
		Search:           rt.Search,
		SearchDepth:      s.SearchDepth,
		SearchMaxResults: s.SearchMaxResults,
		Model:            s.Model,
		MaxTokens:        s.MaxTokens,
	}
}

