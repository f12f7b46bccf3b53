package argus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/randalmurphal/argus/pkg/docstore"
	"github.com/randalmurphal/argus/pkg/flowgraph"
	"github.com/randalmurphal/argus/pkg/flowgraph/config"
	"github.com/randalmurphal/argus/pkg/flowgraph/template"
	"github.com/randalmurphal/argus/pkg/llm"
	"github.com/randalmurphal/argus/pkg/search"
)

// Environment variables read by LoadSettings in addition to the ARGUS_
// prefixed keys.
const (
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvTavilyKey    = "TAVILY_API_KEY"
	EnvAWSRegion    = "AWS_REGION"
	EnvPrefix       = "ARGUS_"
)

// Settings configures a run. Build it with LoadSettings and check it with
// Validate before starting any stage.
type Settings struct {
	LLMProvider     string
	AnthropicAPIKey string
	AnthropicURL    string
	Model           string
	MaxTokens       int

	SearchProvider   string
	TavilyAPIKey     string
	SearchEndpoint   string
	SearchDepth      search.Depth
	SearchMaxResults int

	StoreProvider string
	S3            docstore.S3Config
	PollInterval  time.Duration
	KeepDocument  bool

	FailFast       bool
	MaxConcurrency int
	AnalystTimeout time.Duration

	// SnapshotPath is the SQLite database run history is written to.
	// Empty disables history.
	SnapshotPath string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		LLMProvider:      ProviderAnthropic,
		Model:            llm.DefaultModel,
		MaxTokens:        llm.DefaultMaxTokens,
		SearchProvider:   ProviderTavily,
		SearchEndpoint:   search.DefaultTavilyEndpoint,
		SearchDepth:      search.DepthAdvanced,
		SearchMaxResults: search.DefaultMaxResults,
		StoreProvider:    ProviderS3,
		S3:               docstore.S3Config{Prefix: "decks"},
		PollInterval:     docstore.DefaultPollInterval,
		KeepDocument:     true,
	}
}

// Sources names where LoadSettings reads from.
type Sources struct {
	// File is an optional YAML or JSON settings file.
	File string
	// DotEnv is an optional .env file. A missing file is ignored.
	DotEnv string
	// Environ is the process environment, as returned by os.Environ.
	Environ []string
}

// LoadSettings layers, lowest precedence first: defaults, the settings
// file, the .env file, then the process environment.
func LoadSettings(src Sources) (Settings, error) {
	env := make(map[string]string)
	if src.DotEnv != "" {
		dotenv, err := godotenv.Read(src.DotEnv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, &ConfigError{Err: fmt.Errorf("read %s: %w", src.DotEnv, err)}
		}
		for k, v := range dotenv {
			env[k] = v
		}
	}
	for _, kv := range src.Environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	cfg := config.New(nil)
	if src.File != "" {
		fileCfg, err := config.FromFile(src.File)
		if err != nil {
			return Settings{}, &ConfigError{Err: err}
		}
		if cfg, err = expandEnv(fileCfg, env); err != nil {
			return Settings{}, &ConfigError{Err: fmt.Errorf("%s: %w", src.File, err)}
		}
	}

	environ := make([]string, 0, len(env))
	for k, v := range env {
		environ = append(environ, k+"="+v)
	}
	cfg = cfg.Merge(config.FromEnv(EnvPrefix, environ))

	s := DefaultSettings()
	s.apply(cfg)
	if v, ok := env[EnvAnthropicKey]; ok && v != "" {
		s.AnthropicAPIKey = v
	}
	if v, ok := env[EnvTavilyKey]; ok && v != "" {
		s.TavilyAPIKey = v
	}
	if v, ok := env[EnvAWSRegion]; ok && v != "" && s.S3.Region == "" {
		s.S3.Region = v
	}
	return s, nil
}

// expandEnv replaces ${NAME} references in file values with variables from
// env. Unknown names are left as written.
func expandEnv(c config.Config, env map[string]string) (config.Config, error) {
	vars := make(map[string]any, len(env))
	for k, v := range env {
		vars[k] = v
	}
	expanded, err := envExpander.ExpandMap(c.Raw(), vars)
	if err != nil {
		return config.Config{}, err
	}
	return config.New(expanded), nil
}

var envExpander = template.NewExpander()

// LoadSettingsFromEnv is LoadSettings with the process environment.
func LoadSettingsFromEnv(file, dotenv string) (Settings, error) {
	return LoadSettings(Sources{File: file, DotEnv: dotenv, Environ: os.Environ()})
}

func (s *Settings) apply(c config.Config) {
	llmCfg := c.Section("llm")
	s.LLMProvider = llmCfg.String("provider", s.LLMProvider)
	s.AnthropicAPIKey = llmCfg.String("api_key", s.AnthropicAPIKey)
	s.AnthropicURL = llmCfg.String("base_url", s.AnthropicURL)
	s.Model = llmCfg.String("model", s.Model)
	s.MaxTokens = llmCfg.Int("max_tokens", s.MaxTokens)

	searchCfg := c.Section("search")
	s.SearchProvider = searchCfg.String("provider", s.SearchProvider)
	s.TavilyAPIKey = searchCfg.String("api_key", s.TavilyAPIKey)
	s.SearchEndpoint = searchCfg.String("endpoint", s.SearchEndpoint)
	s.SearchDepth = search.Depth(searchCfg.String("depth", string(s.SearchDepth)))
	s.SearchMaxResults = searchCfg.Int("max_results", s.SearchMaxResults)

	storeCfg := c.Section("store")
	s.StoreProvider = storeCfg.String("provider", s.StoreProvider)
	s.S3.Bucket = storeCfg.String("bucket", s.S3.Bucket)
	s.S3.Prefix = storeCfg.String("prefix", s.S3.Prefix)
	s.S3.Region = storeCfg.String("region", s.S3.Region)
	s.S3.Endpoint = storeCfg.String("endpoint", s.S3.Endpoint)
	s.PollInterval = storeCfg.Duration("poll_interval", s.PollInterval)
	s.KeepDocument = storeCfg.Bool("keep_document", s.KeepDocument)

	pipelineCfg := c.Section("pipeline")
	s.FailFast = pipelineCfg.Bool("fail_fast", s.FailFast)
	s.MaxConcurrency = pipelineCfg.Int("max_concurrency", s.MaxConcurrency)
	s.AnalystTimeout = pipelineCfg.Duration("analyst_timeout", s.AnalystTimeout)

	s.SnapshotPath = c.String("snapshots.path", s.SnapshotPath)
}

// Validate reports every missing credential or invalid value at once.
func (s Settings) Validate() error {
	var errs []error

	if !llmProviders.Has(s.LLMProvider) {
		errs = append(errs, fmt.Errorf("llm provider %q is not one of %v", s.LLMProvider, llmProviders.Keys()))
	} else if s.LLMProvider == ProviderAnthropic && s.AnthropicAPIKey == "" {
		errs = append(errs, fmt.Errorf("%s is not set", EnvAnthropicKey))
	}
	if s.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens must be positive, got %d", s.MaxTokens))
	}

	// A missing search key is not fatal: searches report it as evidence.
	if !searchProviders.Has(s.SearchProvider) {
		errs = append(errs, fmt.Errorf("search provider %q is not one of %v", s.SearchProvider, searchProviders.Keys()))
	}
	if s.SearchDepth != search.DepthBasic && s.SearchDepth != search.DepthAdvanced {
		errs = append(errs, fmt.Errorf("search depth %q is not basic or advanced", s.SearchDepth))
	}

	if !storeProviders.Has(s.StoreProvider) {
		errs = append(errs, fmt.Errorf("store provider %q is not one of %v", s.StoreProvider, storeProviders.Keys()))
	} else if s.StoreProvider == ProviderS3 && s.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("%sSTORE__BUCKET is not set", EnvPrefix))
	}
	if s.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", s.PollInterval))
	}

	if s.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("max concurrency must not be negative, got %d", s.MaxConcurrency))
	}
	if s.AnalystTimeout < 0 {
		errs = append(errs, fmt.Errorf("analyst timeout must not be negative, got %s", s.AnalystTimeout))
	}

	if len(errs) > 0 {
		return &ConfigError{Err: errors.Join(errs...)}
	}
	return nil
}

// ForkJoin returns the parallel execution settings for the analysts.
func (s Settings) ForkJoin() flowgraph.ForkJoinConfig {
	return flowgraph.ForkJoinConfig{
		MaxConcurrency: s.MaxConcurrency,
		FailFast:       s.FailFast,
		MergeTimeout:   s.AnalystTimeout,
	}
}

// Credential describes whether a credential was found.
type Credential struct {
	Name  string
	Found bool
	// Optional credentials may be missing; Validate does not require them.
	Optional bool
}

// Credentials lists the credentials the configured providers need.
func (s Settings) Credentials() []Credential {
	var creds []Credential
	if s.LLMProvider == ProviderAnthropic {
		creds = append(creds, Credential{Name: EnvAnthropicKey, Found: s.AnthropicAPIKey != ""})
	}
	if s.SearchProvider == ProviderTavily {
		creds = append(creds, Credential{Name: EnvTavilyKey, Found: s.TavilyAPIKey != "", Optional: true})
	}
	if s.StoreProvider == ProviderS3 {
		creds = append(creds, Credential{Name: "S3 bucket", Found: s.S3.Bucket != ""})
	}
	return creds
}
