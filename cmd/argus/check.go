package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	foundStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// checkCmd prints the credentials the configured providers need and
// whether the settings are valid.
func (c *cli) checkCmd(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var sf settingsFlags
	sf.register(fs)
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

	fmt.Fprintf(c.stdout, "Providers: llm=%s search=%s store=%s\n",
		settings.LLMProvider, settings.SearchProvider, settings.StoreProvider)
	for _, cred := range settings.Credentials() {
		switch {
		case cred.Found:
			fmt.Fprintf(c.stdout, "  %s %s\n", foundStyle.Render("found"), cred.Name)
		case cred.Optional:
			fmt.Fprintf(c.stdout, "  %s %s (searches will report it as missing)\n", missingStyle.Render("missing"), cred.Name)
		default:
			fmt.Fprintf(c.stdout, "  %s %s\n", missingStyle.Render("missing"), cred.Name)
		}
	}
	return settings.Validate()
}
