package argus

import (
	"strings"

	"github.com/randalmurphal/argus/pkg/flowgraph"
	"github.com/randalmurphal/argus/pkg/search"
)

// FounderQuery is the search issued for each founder.
func FounderQuery(name string) string {
	return name + " fraud lawsuit startup exit"
}

// CompetitorQuery is the search issued for each competitor.
func CompetitorQuery(name string) string {
	return name
}

func (d Deps) analyzeFounders(ctx flowgraph.Context, s RunState) (RunState, error) {
	set, err := entities(s)
	if err != nil {
		return s, err
	}

	evidence := d.gather(ctx, set.Founders, FounderQuery, search.TopicGeneral)
	resp, err := d.generate(ctx, founderPrompt, map[string]string{
		"founders": joinList(set.Founders),
		"evidence": evidence,
	}, Document{})
	if err != nil {
		return s, err
	}
	s.FounderReport = newReport(resp)
	return s, nil
}

func (d Deps) analyzeMarket(ctx flowgraph.Context, s RunState) (RunState, error) {
	set, err := entities(s)
	if err != nil {
		return s, err
	}

	evidence := d.gather(ctx, set.Competitors, CompetitorQuery, search.TopicNews)
	resp, err := d.generate(ctx, marketPrompt, map[string]string{
		"industry":    orUnknown(set.Industry),
		"competitors": joinList(set.Competitors),
		"evidence":    evidence,
	}, Document{})
	if err != nil {
		return s, err
	}
	s.MarketReport = newReport(resp)
	return s, nil
}

func (d Deps) analyzeFinancials(ctx flowgraph.Context, s RunState) (RunState, error) {
	set, err := entities(s)
	if err != nil {
		return s, err
	}

	claims := "None provided."
	if len(set.FinancialClaims) > 0 {
		claims = strings.Join(set.FinancialClaims, "\n")
	}
	resp, err := d.generate(ctx, financialPrompt, map[string]string{
		"industry": orUnknown(set.Industry),
		"claims":   claims,
	}, Document{})
	if err != nil {
		return s, err
	}
	s.FinancialReport = newReport(resp)
	return s, nil
}
