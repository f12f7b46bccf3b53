package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/randalmurphal/argus/pkg/argus"
	"github.com/randalmurphal/argus/pkg/flowgraph/snapshot"
)

func (c *cli) historyCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var sf settingsFlags
	sf.register(fs)
	fs.Usage = func() {
		fmt.Fprintln(c.stderr, `Usage: argus history [options] [run-id]

Without a run ID, list recorded runs. With one, list its stage snapshots
and print the memo if the run completed.

Options:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	settings, err := sf.load(c.environ)
	if err != nil {
		return err
	}
	if settings.SnapshotPath == "" {
		return &argus.ConfigError{Err: errors.New("no run history database; set --snapshots or snapshots.path")}
	}

	store, err := snapshot.NewSQLiteStore(settings.SnapshotPath)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	if fs.NArg() == 0 {
		return c.listRuns(ctx, store)
	}
	return c.showRun(ctx, store, fs.Arg(0))
}

func (c *cli) listRuns(ctx context.Context, store snapshot.Store) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.stdout, "No runs recorded.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STAGES", "STARTED", "DURATION")
	for _, r := range runs {
		t.Row(r.RunID, strconv.Itoa(r.Snapshots), r.FirstAt.Local().Format(time.DateTime), r.LastAt.Sub(r.FirstAt).Round(time.Millisecond).String())
	}
	fmt.Fprintln(c.stdout, t.Render())
	return nil
}

func (c *cli) showRun(ctx context.Context, store snapshot.Store, runID string) error {
	infos, err := store.List(ctx, runID)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(infos) == 0 {
		return fmt.Errorf("run %s: %w", runID, snapshot.ErrNotFound)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "STAGE", "BRANCH", "AT", "BYTES")
	for _, info := range infos {
		t.Row(strconv.Itoa(info.Sequence), info.NodeID, info.Branch, info.Timestamp.Local().Format(time.TimeOnly), strconv.FormatInt(info.Size, 10))
	}
	fmt.Fprintln(c.stdout, t.Render())

	snap, err := store.Load(ctx, runID, argus.StageSynthesis)
	if errors.Is(err, snapshot.ErrNotFound) {
		fmt.Fprintln(c.stdout, "Run did not complete.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load memo: %w", err)
	}

	var state argus.RunState
	if err := json.Unmarshal(snap.State, &state); err != nil {
		return fmt.Errorf("decode memo: %w", err)
	}
	if state.Artifact == nil {
		fmt.Fprintln(c.stdout, "Run did not complete.")
		return nil
	}
	fmt.Fprintln(c.stdout)
	fmt.Fprint(c.stdout, renderPlain(state, runID))
	return nil
}
