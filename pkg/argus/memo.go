package argus

import (
	"regexp"
	"strings"
)

// Recommendation is the memo's final call.
type Recommendation string

const (
	RecommendPass        Recommendation = "PASS"
	RecommendInvestigate Recommendation = "INVESTIGATE FURTHER"
)

// MemoSections are the headings the synthesis stage asks for.
var MemoSections = []string{
	"Executive Summary",
	"Team Risk Assessment",
	"Market Viability",
	"Financial Sanity Check",
	"Hot Seat",
	"Final Recommendation",
}

var (
	investigatePattern = regexp.MustCompile(`\bINVESTIGATE\s+FURTHER\b`)
	passPattern        = regexp.MustCompile(`\bPASS\b`)
)

// ParseRecommendation finds the recommendation in a memo. It looks after
// the "Final Recommendation" heading when present, otherwise in the whole
// text. ok is false when neither or both verdicts appear.
func ParseRecommendation(memo string) (rec Recommendation, ok bool) {
	text := memo
	if i := strings.LastIndex(strings.ToLower(memo), "final recommendation"); i >= 0 {
		text = memo[i+len("final recommendation"):]
	}

	investigate := investigatePattern.MatchString(text)
	pass := passPattern.MatchString(text)
	switch {
	case investigate && !pass:
		return RecommendInvestigate, true
	case pass && !investigate:
		return RecommendPass, true
	}
	return "", false
}

// HotSeat returns the "Hot Seat" section of a memo: the lines from its
// heading up to the next heading. It returns "" when the memo has none.
func HotSeat(memo string) string {
	lines := strings.Split(memo, "\n")
	start := -1
	for i, line := range lines {
		if isHeading(line) && strings.Contains(strings.ToLower(line), "hot seat") {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if isHeading(lines[i]) {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

// isHeading reports whether a memo line is a markdown heading or a line
// made of a single bold phrase.
func isHeading(line string) bool {
	t := strings.TrimSpace(line)
	if strings.HasPrefix(t, "#") {
		return true
	}
	return len(t) > 4 && strings.HasPrefix(t, "**") && strings.HasSuffix(t, "**") &&
		!strings.Contains(t[2:len(t)-2], "**")
}
