// Command argus analyzes startup pitch decks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/randalmurphal/argus/pkg/argus"
	fgerrors "github.com/randalmurphal/argus/pkg/flowgraph/errors"
)

var version = "dev"

// exitConfig is returned for invalid settings or usage (EX_CONFIG).
const exitConfig = 78

// cli carries the process streams so commands can be tested.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	environ []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := (&cli{stdout: os.Stdout, stderr: os.Stderr, environ: os.Environ()}).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		c.usage(c.stderr)
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "analyze":
		return c.exit(c.analyzeCmd(ctx, rest))
	case "history":
		return c.exit(c.historyCmd(ctx, rest))
	case "check":
		return c.exit(c.checkCmd(rest))
	case "version":
		fmt.Fprintf(c.stdout, "argus %s\n", version)
		return 0
	case "help", "-h", "--help":
		c.usage(c.stdout)
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", cmd)
		c.usage(c.stderr)
		return 1
	}
}

func (c *cli) usage(w io.Writer) {
	fmt.Fprintln(w, `Argus - pitch deck due diligence

Usage:
  argus <command> [options]

Commands:
  analyze   Analyze a pitch deck and print the investment memo
  history   List recorded runs, or show one run
  check     Report which credentials are configured
  version   Print version information
  help      Show this help message

Examples:
  argus analyze deck.pdf
  argus analyze --offline --plain deck.pdf
  argus history --snapshots runs.db
  argus history --snapshots runs.db 3f2a...

Run 'argus <command> --help' for more information on a command.`)
}

// exit prints err and maps it to a process exit status.
func (c *cli) exit(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	fmt.Fprintf(c.stderr, "Error: %v\n", err)
	if fgerrors.IsRetryable(err) {
		fmt.Fprintln(c.stderr, "This looks transient; running again later may succeed.")
	}

	var cfgErr *argus.ConfigError
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	return fgerrors.ExitCode(err)
}

// errUsage marks flag errors already reported by the flag package.
var errUsage = errors.New("usage")

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
