package insights

import (
	"fmt"
	"strings"

	"github.com/channelintel/backend/internal/domain"
)

const insightPromptHeader = `You are a financial/news analyst. Return STRICT JSON ONLY, no markdown, no extra keys.
Produce a structured analytical record for the topic below.

Output a single JSON object shaped exactly as:
{"analysis_summary": string, "stance": one of %s, "rationale_long": string, "rationale_short": string, "rationale_neutral": string, "risks_and_watchouts": [string], "key_questions_for_user": [string], "suggested_instruments_long": [string], "suggested_instruments_short": [string], "useful_resources": [{"url": string, "description": string}]}

Topic: %s
Metatopic: %s
Importance: %d/10
Summary: %s
`

func buildInsightPrompt(topic domain.TopicSummary) string {
	stances := make([]string, len(domain.ValidStances))
	for i, s := range domain.ValidStances {
		stances[i] = string(s)
	}

	return fmt.Sprintf(insightPromptHeader,
		"["+strings.Join(stances, ", ")+"]",
		topic.Topic, topic.Metatopic, topic.Importance, topic.Summary,
	)
}
