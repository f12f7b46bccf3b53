package argus

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/randalmurphal/argus/pkg/llm"
)

// Run state field names, used in stage access declarations.
const (
	FieldDocument        = "document_reference"
	FieldEntities        = "entity_set"
	FieldFounderReport   = "founder_report"
	FieldMarketReport    = "market_report"
	FieldFinancialReport = "financial_report"
	FieldVerdict         = "validation_verdict"
	FieldArtifact        = "final_artifact"
)

// ExtractOutcome records how the entity set was obtained.
type ExtractOutcome string

const (
	// OutcomeParsed means the model output parsed as an entity object.
	OutcomeParsed ExtractOutcome = "parsed"
	// OutcomeFallback means the output could not be parsed and the empty
	// entity set was substituted.
	OutcomeFallback ExtractOutcome = "fallback"
)

// EntitySet is the structured information extracted from the document.
// Empty slices mean nothing was found.
type EntitySet struct {
	Founders        []string `json:"founders"`
	Competitors     []string `json:"competitors"`
	FinancialClaims []string `json:"financial_claims"`
	Industry        string   `json:"industry"`

	Outcome ExtractOutcome `json:"outcome"`
	// Reason explains a fallback, or names the keys that were dropped
	// because they held the wrong kind of value.
	Reason string `json:"reason,omitempty"`
}

// EmptyEntitySet returns the set substituted when extraction output cannot
// be parsed.
func EmptyEntitySet(reason string) EntitySet {
	return EntitySet{
		Founders:        []string{},
		Competitors:     []string{},
		FinancialClaims: []string{},
		Outcome:         OutcomeFallback,
		Reason:          reason,
	}
}

func (e EntitySet) clone() EntitySet {
	e.Founders = slices.Clone(e.Founders)
	e.Competitors = slices.Clone(e.Competitors)
	e.FinancialClaims = slices.Clone(e.FinancialClaims)
	return e
}

// Report is the text one stage produced and what producing it cost.
type Report struct {
	Text     string         `json:"text"`
	Model    string         `json:"model,omitempty"`
	Usage    llm.TokenUsage `json:"usage"`
	Duration time.Duration  `json:"duration"`
}

func newReport(resp *llm.CompletionResponse) *Report {
	return &Report{
		Text:     resp.Content,
		Model:    resp.Model,
		Usage:    resp.Usage,
		Duration: resp.Duration,
	}
}

// Document identifies a stored deck.
type Document struct {
	Ref string
	// MediaType is the stored content type. Empty means PDF.
	MediaType string
}

// RunState is threaded through every stage of a run. Every field except
// the document starts unset and is written by exactly one stage.
type RunState struct {
	DocumentRef string `json:"document_reference"`
	MediaType   string `json:"media_type,omitempty"`

	Entities *EntitySet `json:"entity_set,omitempty"`

	FounderReport   *Report `json:"founder_report,omitempty"`
	MarketReport    *Report `json:"market_report,omitempty"`
	FinancialReport *Report `json:"financial_report,omitempty"`

	Verdict  *Report `json:"validation_verdict,omitempty"`
	Artifact *Report `json:"final_artifact,omitempty"`
}

// NewRunState creates the state a run starts from.
func NewRunState(doc Document) RunState {
	return RunState{DocumentRef: doc.Ref, MediaType: doc.MediaType}
}

// Document returns the document the run analyzes.
func (s RunState) Document() Document {
	return Document{Ref: s.DocumentRef, MediaType: s.MediaType}
}

var reportFields = []struct {
	name string
	ptr  func(*RunState) **Report
}{
	{FieldFounderReport, func(s *RunState) **Report { return &s.FounderReport }},
	{FieldMarketReport, func(s *RunState) **Report { return &s.MarketReport }},
	{FieldFinancialReport, func(s *RunState) **Report { return &s.FinancialReport }},
	{FieldVerdict, func(s *RunState) **Report { return &s.Verdict }},
	{FieldArtifact, func(s *RunState) **Report { return &s.Artifact }},
}

// WrittenFields returns the names of the fields that are set.
func (s RunState) WrittenFields() []string {
	var fields []string
	if s.DocumentRef != "" {
		fields = append(fields, FieldDocument)
	}
	if s.Entities != nil {
		fields = append(fields, FieldEntities)
	}
	for _, f := range reportFields {
		if *f.ptr(&s) != nil {
			fields = append(fields, f.name)
		}
	}
	sort.Strings(fields)
	return fields
}

// FieldVersions identifies the value each written field holds. Entities
// and reports are identified by pointer.
func (s RunState) FieldVersions() map[string]any {
	versions := make(map[string]any)
	if s.DocumentRef != "" {
		versions[FieldDocument] = s.Document()
	}
	if s.Entities != nil {
		versions[FieldEntities] = s.Entities
	}
	for _, f := range reportFields {
		if r := *f.ptr(&s); r != nil {
			versions[f.name] = r
		}
	}
	return versions
}

// Clone gives a branch its own copy of the state.
func (s RunState) Clone(string) RunState {
	clone := s
	if s.Entities != nil {
		e := s.Entities.clone()
		clone.Entities = &e
	}
	return clone
}

// Merge unions the reports the branches produced. A report set by more
// than one branch is an error.
func (s RunState) Merge(branches map[string]RunState) (RunState, error) {
	ids := make([]string, 0, len(branches))
	for id := range branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	merged := s
	writer := make(map[string]string)
	for _, id := range ids {
		b := branches[id]
		for _, f := range reportFields {
			base, got := *f.ptr(&s), *f.ptr(&b)
			if got == nil || got == base {
				continue
			}
			if base != nil {
				return s, fmt.Errorf("branch %s replaced %s", id, f.name)
			}
			if prev, ok := writer[f.name]; ok {
				return s, fmt.Errorf("%s written by branches %s and %s", f.name, prev, id)
			}
			writer[f.name] = id
			*f.ptr(&merged) = got
		}
	}
	return merged, nil
}

// Usage sums the token usage of every report.
func (s RunState) Usage() llm.TokenUsage {
	var total llm.TokenUsage
	for _, f := range reportFields {
		if r := *f.ptr(&s); r != nil {
			total.Add(r.Usage)
		}
	}
	return total
}
