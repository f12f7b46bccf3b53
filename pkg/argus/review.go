package argus

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/argus/pkg/flowgraph"
)

const missingReport = "No report"

func reportText(r *Report) string {
	if r == nil {
		return missingReport
	}
	return r.Text
}

func (d Deps) validate(ctx flowgraph.Context, s RunState) (RunState, error) {
	resp, err := d.generate(ctx, validatorPrompt, map[string]string{
		"founder_report":   reportText(s.FounderReport),
		"market_report":    reportText(s.MarketReport),
		"financial_report": reportText(s.FinancialReport),
	}, s.Document())
	if err != nil {
		return s, err
	}
	s.Verdict = newReport(resp)
	return s, nil
}

func (d Deps) synthesize(ctx flowgraph.Context, s RunState) (RunState, error) {
	resp, err := d.generate(ctx, synthesisPrompt, map[string]string{
		"context": synthesisContext(s),
	}, Document{})
	if err != nil {
		return s, err
	}
	s.Artifact = newReport(resp)
	return s, nil
}

// synthesisContext lays out the reports and the verdict under headers.
func synthesisContext(s RunState) string {
	sections := []struct {
		title  string
		report *Report
	}{
		{"Founder Report", s.FounderReport},
		{"Market Report", s.MarketReport},
		{"Financial Report", s.FinancialReport},
		{"VALIDATION VERDICT", s.Verdict},
	}

	var b strings.Builder
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- %s ---\n%s", sec.title, reportText(sec.report))
	}
	return b.String()
}
