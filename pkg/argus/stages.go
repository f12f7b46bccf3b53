package argus

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/argus/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/argus/pkg/flowgraph/errors"
	"github.com/randalmurphal/argus/pkg/llm"
	"github.com/randalmurphal/argus/pkg/search"
)

// Stage names.
const (
	StageExtractor        = "extractor"
	StageFounderAnalyst   = "founder_analyst"
	StageMarketAnalyst    = "market_analyst"
	StageFinancialAnalyst = "financial_analyst"
	StageValidator        = "validator"
	StageSynthesis        = "synthesis"

	// StageIngest names failures that happen before the first stage.
	StageIngest = "ingest"
)

// Stage describes one node of the pipeline: what it reads, what it writes,
// and which stages run after it.
type Stage struct {
	Name   string
	Access flowgraph.Access
	Next   []string
	Run    flowgraph.NodeFunc[RunState]
}

// Deps are the collaborators and call settings shared by all stages.
type Deps struct {
	LLM llm.Client

	// Search may be nil; searches then render the missing-key error as
	// evidence.
	Search search.Client

	// SearchDepth defaults to advanced.
	SearchDepth search.Depth

	// SearchMaxResults defaults to search.DefaultMaxResults.
	SearchMaxResults int

	// Model and MaxTokens override the client defaults when set.
	Model     string
	MaxTokens int

	// MediaType is used for documents whose run state carries none.
	// Defaults to PDF.
	MediaType string
}

func (d Deps) withDefaults() Deps {
	if d.SearchDepth == "" {
		d.SearchDepth = search.DepthAdvanced
	}
	if d.MediaType == "" {
		d.MediaType = llm.MediaTypePDF
	}
	return d
}

// Stages returns the pipeline's stage descriptors in execution order.
func Stages(deps Deps) []Stage {
	d := deps.withDefaults()
	analysts := []string{StageFounderAnalyst, StageMarketAnalyst, StageFinancialAnalyst}
	reports := []string{FieldFounderReport, FieldMarketReport, FieldFinancialReport}

	return []Stage{
		{
			Name:   StageExtractor,
			Access: flowgraph.Access{Reads: []string{FieldDocument}, Writes: []string{FieldEntities}},
			Next:   analysts,
			Run:    d.extract,
		},
		{
			Name:   StageFounderAnalyst,
			Access: flowgraph.Access{Reads: []string{FieldEntities}, Writes: []string{FieldFounderReport}},
			Next:   []string{StageValidator},
			Run:    d.analyzeFounders,
		},
		{
			Name:   StageMarketAnalyst,
			Access: flowgraph.Access{Reads: []string{FieldEntities}, Writes: []string{FieldMarketReport}},
			Next:   []string{StageValidator},
			Run:    d.analyzeMarket,
		},
		{
			Name:   StageFinancialAnalyst,
			Access: flowgraph.Access{Reads: []string{FieldEntities}, Writes: []string{FieldFinancialReport}},
			Next:   []string{StageValidator},
			Run:    d.analyzeFinancials,
		},
		{
			Name:   StageValidator,
			Access: flowgraph.Access{Reads: append([]string{FieldDocument}, reports...), Writes: []string{FieldVerdict}},
			Next:   []string{StageSynthesis},
			Run:    d.validate,
		},
		{
			Name:   StageSynthesis,
			Access: flowgraph.Access{Reads: append(reports, FieldVerdict), Writes: []string{FieldArtifact}},
			Next:   []string{flowgraph.END},
			Run:    d.synthesize,
		},
	}
}

// generate renders the task, sends one user message and returns the
// model's answer.
func (d Deps) generate(ctx flowgraph.Context, prompt Prompt, vars map[string]string, doc Document) (*llm.CompletionResponse, error) {
	task, err := prompt.Task.Render(vars)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	parts := []llm.Part{llm.TextPart(task)}
	if doc.Ref != "" {
		mediaType := doc.MediaType
		if mediaType == "" {
			mediaType = d.MediaType
		}
		parts = append(parts, llm.DocumentPart(doc.Ref, mediaType))
	}

	ctx.Logger().Debug("calling model", "prompt", prompt.Task.Name(), "with_document", doc.Ref != "")
	resp, err := d.LLM.Complete(ctx, llm.CompletionRequest{
		System:      prompt.System,
		Messages:    []llm.Message{llm.UserMessage(parts...)},
		Model:       d.Model,
		MaxTokens:   d.MaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	ctx.Logger().Debug("model responded",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration_ms", resp.Duration.Milliseconds())
	return resp, nil
}

// gather runs one search per item and concatenates the outcomes under
// per-item headers. Search failures become part of the evidence.
func (d Deps) gather(ctx flowgraph.Context, items []string, query func(string) string, topic search.Topic) string {
	opts := search.Options{Depth: d.SearchDepth, Topic: topic, MaxResults: d.SearchMaxResults}
	sections := make([]search.Section, 0, len(items))
	for _, item := range items {
		text, err := search.Run(ctx, d.Search, query(item), opts)
		if err != nil {
			ctx.Logger().Warn("search failed, continuing with error text",
				"item", item, "error", err, "retryable", fgerrors.IsRetryable(err))
		}
		sections = append(sections, search.Section{Item: item, Text: text})
	}
	return search.Evidence(sections)
}

func entities(s RunState) (EntitySet, error) {
	if s.Entities == nil {
		return EntitySet{}, fmt.Errorf("%s not available", FieldEntities)
	}
	return *s.Entities, nil
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "None identified."
	}
	return strings.Join(items, ", ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
