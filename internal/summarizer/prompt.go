package summarizer

import (
	"fmt"
	"strings"

	"github.com/channelintel/backend/internal/domain"
)

const summaryPromptHeader = `You are a news summarizer. Return STRICT JSON ONLY, no markdown, no extra keys.
Group the messages below into at most 20 salient topics. Each topic must reference only the numeric ids of messages provided.

Output a single JSON object shaped exactly as:
{"topics": [{"topic": string, "metatopic": string, "importance": integer 1-10, "summary": string, "message_ids": [integer]}]}

Messages:
`

// buildSummaryPrompt renders the prompt for one Summarize call and
// returns the set of numeric message ids the model is allowed to
// reference, so the caller can validate membership afterward.
func buildSummaryPrompt(messages []domain.Message, maxChars int) (map[int64]struct{}, string) {
	valid := make(map[int64]struct{}, len(messages))

	var sb strings.Builder

	sb.WriteString(summaryPromptHeader)

	for _, m := range messages {
		id, ok := parseNumericID(m.MessageID)
		if !ok {
			continue
		}

		valid[id] = struct{}{}

		fmt.Fprintf(&sb, "[%d] %s\n", id, truncate(m.Text, maxChars))

		for _, link := range m.ResolvedLinks {
			if link.Summary != "" {
				fmt.Fprintf(&sb, "    link: %s\n", link.Summary)
			}
		}
	}

	return valid, sb.String()
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}

	return s[:max]
}
