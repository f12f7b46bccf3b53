package argus

import (
	"context"
	"fmt"
	"strings"

	"github.com/randalmurphal/argus/pkg/llm"
)

const offlineModel = "offline"

// offlineEntities is what the offline extractor reports for any document.
const offlineEntities = "```json\n" + `{
  "founders": ["Ada Example", "Grace Sample"],
  "competitors": ["Incumbent Corp"],
  "financial_claims": ["$1.2M ARR", "40% month-over-month growth"],
  "industry": "SaaS"
}` + "\n```"

const offlineMemo = `# Investment Memo

## Executive Summary
Offline run. No external services were contacted.

## Team Risk Assessment
Team risk: MEDIUM. No background data was available.

## Market Viability
One competitor identified, no market data gathered.

## Financial Sanity Check
Growth claims could not be verified.

## The "Hot Seat" Questions
1. Who are your paying customers?
2. What is your monthly churn?
3. How was the ARR figure calculated?
4. What does the incumbent do better than you?
5. What did your last company exit for?
6. How long is your runway?
7. What is your customer acquisition cost?
8. Which claim in the deck is least certain?
9. Who else is on the cap table?
10. What would make you shut the company down?

## Final Recommendation
INVESTIGATE FURTHER`

// NewOfflineClient returns a generation client that answers every stage
// with fixed text, for dry runs without credentials.
func NewOfflineClient() *llm.MockClient {
	return llm.NewMockClient("").WithCompleteFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		var content string
		switch req.System {
		case extractorPrompt.System:
			content = offlineEntities
		case synthesisPrompt.System:
			content = offlineMemo
		default:
			content = fmt.Sprintf("Offline report. Prompt was %d characters.", len(requestText(req)))
		}
		return &llm.CompletionResponse{
			Content:    content,
			Model:      offlineModel,
			StopReason: "end_turn",
		}, nil
	})
}

func requestText(req llm.CompletionRequest) string {
	var b strings.Builder
	for _, m := range req.Messages {
		b.WriteString(m.Text())
	}
	return b.String()
}
