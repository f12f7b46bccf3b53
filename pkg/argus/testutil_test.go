package argus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/argus/pkg/llm"
	"github.com/randalmurphal/argus/pkg/search"
)

const testRef = "mem://deck/pitch.pdf"

const testEntities = `{"founders": ["Jane Doe"], "competitors": ["Acme"], "financial_claims": ["$2M ARR"], "industry": "Fintech"}`

const testMemo = `## Executive Summary
Solid team.
## Team Risk Assessment
LOW
## Market Viability
Crowded.
## Financial Sanity Check
Plausible.
## The "Hot Seat" Questions
1. Why now?
## Final Recommendation
INVESTIGATE FURTHER`

var stageBySystem = func() map[string]string {
	out := make(map[string]string)
	for name, p := range Prompts() {
		out[p.System] = name
	}
	return out
}()

func stageOf(req llm.CompletionRequest) string {
	return stageBySystem[req.System]
}

// scriptedLLM answers each stage with a fixed response and can fail chosen
// stages.
type scriptedLLM struct {
	*llm.MockClient

	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
}

func newScriptedLLM() *scriptedLLM {
	s := &scriptedLLM{
		responses: map[string]string{
			StageExtractor:        testEntities,
			StageFounderAnalyst:   "founder report",
			StageMarketAnalyst:    "market report",
			StageFinancialAnalyst: "financial report",
			StageValidator:        "verdict",
			StageSynthesis:        testMemo,
		},
		failures: make(map[string]error),
	}
	s.MockClient = llm.NewMockClient("").WithCompleteFunc(s.complete)
	return s
}

func (s *scriptedLLM) respond(stage, content string) *scriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[stage] = content
	return s
}

func (s *scriptedLLM) fail(stage string, err error) *scriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[stage] = err
	return s
}

func (s *scriptedLLM) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	stage := stageOf(req)
	s.mu.Lock()
	err, failing := s.failures[stage]
	content, ok := s.responses[stage]
	s.mu.Unlock()

	if failing {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("unexpected request for stage %q", stage)
	}
	return &llm.CompletionResponse{
		Content: content,
		Model:   "test-model",
		Usage:   llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}, nil
}

// callsFor returns the recorded requests of one stage.
func (s *scriptedLLM) callsFor(stage string) []llm.CompletionRequest {
	var out []llm.CompletionRequest
	for _, c := range s.Calls {
		if stageOf(c) == stage {
			out = append(out, c)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, client llm.Client, searcher search.Client, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	p, err := NewPipeline(Deps{LLM: client, Search: searcher}, opts...)
	require.NoError(t, err)
	return p
}

func taskText(req llm.CompletionRequest) string {
	return requestText(req)
}
