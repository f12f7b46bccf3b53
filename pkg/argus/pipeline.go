package argus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/argus/pkg/flowgraph"
)

// Pipeline runs the analysis graph for one document at a time.
// A Pipeline is safe for concurrent use; every Execute call has its own state.
type Pipeline struct {
	stages  []Stage
	graph   *flowgraph.CompiledGraph[RunState]
	logger  *slog.Logger
	runOpts []flowgraph.RunOption
}

// Option configures a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	forkJoin flowgraph.ForkJoinConfig
	logger   *slog.Logger
	runOpts  []flowgraph.RunOption
}

// WithForkJoin configures how the analysts run in parallel.
func WithForkJoin(cfg flowgraph.ForkJoinConfig) Option {
	return func(c *pipelineConfig) { c.forkJoin = cfg }
}

// WithLogger sets the logger passed to stages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *pipelineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunOptions adds options applied to every run.
func WithRunOptions(opts ...flowgraph.RunOption) Option {
	return func(c *pipelineConfig) { c.runOpts = append(c.runOpts, opts...) }
}

// NewPipeline builds and compiles the stage graph.
func NewPipeline(deps Deps, opts ...Option) (*Pipeline, error) {
	if deps.LLM == nil {
		return nil, &ConfigError{Err: errors.New("no text generation client")}
	}

	cfg := pipelineConfig{
		forkJoin: flowgraph.DefaultForkJoinConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	stages := Stages(deps)
	compiled, err := buildGraph(stages, cfg.forkJoin)
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}

	return &Pipeline{
		stages:  stages,
		graph:   compiled,
		logger:  cfg.logger,
		runOpts: cfg.runOpts,
	}, nil
}

func buildGraph(stages []Stage, forkJoin flowgraph.ForkJoinConfig) (*flowgraph.CompiledGraph[RunState], error) {
	g := flowgraph.NewGraph[RunState]()
	for _, st := range stages {
		g.AddNode(st.Name, st.Run).SetAccess(st.Name, st.Access)
	}
	for _, st := range stages {
		for _, next := range st.Next {
			g.AddEdge(st.Name, next)
		}
	}
	return g.SetEntry(stages[0].Name).
		SetInputs(FieldDocument).
		SetForkJoinConfig(forkJoin).
		Compile()
}

// Stages returns the stage descriptors the pipeline was built from.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Graph returns the compiled graph for inspection.
func (p *Pipeline) Graph() *flowgraph.CompiledGraph[RunState] {
	return p.graph
}

// Execute runs every stage against the stored document and returns the
// completed state. On failure the error is a *StageError naming the
// originating stage, and the returned state holds whatever was produced
// before it.
func (p *Pipeline) Execute(ctx context.Context, documentRef string, opts ...flowgraph.RunOption) (RunState, error) {
	return p.ExecuteDocument(ctx, Document{Ref: documentRef}, opts...)
}

// ExecuteDocument is Execute for a document whose media type is known.
func (p *Pipeline) ExecuteDocument(ctx context.Context, doc Document, opts ...flowgraph.RunOption) (RunState, error) {
	if doc.Ref == "" {
		return RunState{}, &StageError{Err: ErrNoDocument}
	}

	fctx := flowgraph.NewContext(ctx, flowgraph.WithLogger(p.logger))
	runOpts := append(append([]flowgraph.RunOption(nil), p.runOpts...), opts...)

	state, err := p.graph.Run(fctx, NewRunState(doc), runOpts...)
	if err != nil {
		return state, &StageError{Stage: flowgraph.FailedNode(err), Err: err}
	}
	return state, nil
}

// Run executes the pipeline and returns the final memo.
func (p *Pipeline) Run(ctx context.Context, documentRef string, opts ...flowgraph.RunOption) (string, error) {
	state, err := p.Execute(ctx, documentRef, opts...)
	if err != nil {
		return "", err
	}
	return state.Artifact.Text, nil
}
