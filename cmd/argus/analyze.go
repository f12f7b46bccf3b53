package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/randalmurphal/argus/pkg/argus"
	"github.com/randalmurphal/argus/pkg/flowgraph"
	"github.com/randalmurphal/argus/pkg/flowgraph/event"
	"github.com/randalmurphal/argus/pkg/flowgraph/snapshot"
)

func (c *cli) analyzeCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var sf settingsFlags
	sf.register(fs)
	var lf logFlags
	lf.register(fs)
	plain := fs.Bool("plain", false, "print plain text without the progress view")
	jsonOut := fs.Bool("json", false, "print the full run state as JSON")
	output := fs.String("output", "", "also write the memo to this file")
	telemetry := fs.Bool("telemetry", false, "record OpenTelemetry metrics and spans")

	fs.Usage = func() {
		fmt.Fprintln(c.stderr, `Usage: argus analyze [options] <deck.pdf>

Upload a pitch deck, run the analysis stages and print the investment memo.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Error: specify exactly one document")
		fs.Usage()
		return errUsage
	}
	path := fs.Arg(0)

	settings, err := sf.load(c.environ)
	if err != nil {
		return err
	}
	rt, err := argus.NewRuntime(ctx, settings)
	if err != nil {
		return err
	}

	interactive := !*plain && !*jsonOut && isTerminal(c.stdout)
	logOut := c.stderr
	if interactive && !lf.verbose {
		logOut = io.Discard
	}
	logger := lf.logger(logOut)

	bus := event.NewBus(event.DefaultBusConfig)
	defer func() { _ = bus.Close() }()

	runID := uuid.NewString()
	runOpts := []flowgraph.RunOption{
		flowgraph.WithGraphName("argus"),
		flowgraph.WithObservabilityLogger(logger),
		flowgraph.WithEventBus(bus),
	}
	if *telemetry {
		runOpts = append(runOpts, flowgraph.WithMetrics(true), flowgraph.WithTracing(true))
	}
	if settings.SnapshotPath != "" {
		store, err := snapshot.NewSQLiteStore(settings.SnapshotPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer func() { _ = store.Close() }()
		runOpts = append(runOpts, flowgraph.WithSnapshots(store))
	}

	p, err := argus.NewPipeline(settings.Deps(rt),
		argus.WithForkJoin(settings.ForkJoin()),
		argus.WithLogger(logger),
		argus.WithRunOptions(runOpts...))
	if err != nil {
		return err
	}

	analyze := func(ctx context.Context) (argus.RunState, error) {
		return argus.Analyze(ctx, rt, p, settings, path, logger, flowgraph.WithRunID(runID))
	}

	var state argus.RunState
	if interactive {
		stages := make([]string, 0, len(p.Stages()))
		for _, st := range p.Stages() {
			stages = append(stages, st.Name)
		}
		state, err = runWithProgress(ctx, c.stdout, bus, stages, analyze)
	} else {
		state, err = analyze(ctx)
	}
	if err != nil {
		return err
	}

	historyID := ""
	if settings.SnapshotPath != "" {
		historyID = runID
	}
	return c.report(state, historyID, interactive, *jsonOut, *output, logger)
}

func (c *cli) report(state argus.RunState, runID string, styled, asJSON bool, output string, logger *slog.Logger) error {
	if output != "" {
		if err := os.WriteFile(output, []byte(state.Artifact.Text+"\n"), 0o644); err != nil {
			return fmt.Errorf("write memo: %w", err)
		}
		logger.Info("memo written", "path", output)
	}

	switch {
	case asJSON:
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case styled:
		_, err := io.WriteString(c.stdout, renderMemo(state, runID))
		return err
	default:
		_, err := io.WriteString(c.stdout, renderPlain(state, runID))
		return err
	}
}
