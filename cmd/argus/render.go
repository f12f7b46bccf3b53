package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randalmurphal/argus/pkg/argus"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	memoStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	hotSeatStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F7B801")).
			Padding(0, 1)
	passStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	investigateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// renderMemo formats the outcome of a run for a terminal.
func renderMemo(state argus.RunState, runID string) string {
	memo := state.Artifact.Text
	sections := []string{titleStyle.Render("Investment Memo"), memoStyle.Render(memo)}

	if hot := argus.HotSeat(memo); hot != "" {
		sections = append(sections, titleStyle.Render("Hot Seat"), hotSeatStyle.Render(hot))
	}

	if rec, ok := argus.ParseRecommendation(memo); ok {
		style := investigateStyle
		if rec == argus.RecommendPass {
			style = passStyle
		}
		sections = append(sections, "Recommendation: "+style.Render(string(rec)))
	}

	sections = append(sections, footerStyle.Render(summaryLine(state, runID)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// renderPlain formats the outcome of a run without styling.
func renderPlain(state argus.RunState, runID string) string {
	var b strings.Builder
	b.WriteString(state.Artifact.Text)
	b.WriteString("\n\n")
	if rec, ok := argus.ParseRecommendation(state.Artifact.Text); ok {
		fmt.Fprintf(&b, "Recommendation: %s\n", rec)
	}
	b.WriteString(summaryLine(state, runID) + "\n")
	return b.String()
}

func summaryLine(state argus.RunState, runID string) string {
	usage := state.Usage()
	line := fmt.Sprintf("tokens: %d in / %d out", usage.InputTokens, usage.OutputTokens)
	if state.Entities != nil && state.Entities.Outcome == argus.OutcomeFallback {
		line += " | extraction fell back to an empty entity set"
	}
	if runID != "" {
		line += " | run " + runID
	}
	return line
}
