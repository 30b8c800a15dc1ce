package clusterer

import (
	"fmt"
	"strings"

	"github.com/channelintel/backend/internal/domain"
)

const clusterPromptHeader = `You are a channel classifier. Return STRICT JSON ONLY, no markdown, no extra keys.
Partition the channels below into topic groups. Every channel id listed must appear in exactly one group's "channels" array, unchanged, with no ids invented or dropped.

Output a single JSON object shaped exactly as:
{"groups": [{"topic": string, "language": string (ISO-639-1), "channels": [{"id": string, "name": string, "url": string, "left": bool}]}]}

Channels:
`

// buildClusterPrompt renders the channel list the model must partition.
func buildClusterPrompt(channels []domain.Channel) string {
	var sb strings.Builder

	sb.WriteString(clusterPromptHeader)

	for _, ch := range channels {
		fmt.Fprintf(&sb, "- id=%s name=%q url=%q left=%v\n", ch.ID, ch.Name, ch.URL, ch.Left)
	}

	return sb.String()
}
