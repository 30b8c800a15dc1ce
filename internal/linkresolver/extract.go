package linkresolver

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>"{}|\\^\x60\[\]]+`)

// ExtractURLs returns every distinct URL embedded in text, in order of
// first appearance, with trailing sentence punctuation stripped so
// "see https://example.com." yields "https://example.com" rather than
// the URL plus its closing period.
func ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)

	seen := make(map[string]bool, len(matches))

	var out []string

	for _, raw := range matches {
		normalized := normalize(raw)
		if normalized == "" || seen[normalized] {
			continue
		}

		seen[normalized] = true
		out = append(out, normalized)
	}

	return out
}

func normalize(raw string) string {
	trimmed := strings.TrimRight(raw, ".,;:!?)\"'")

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return ""
	}

	return trimmed
}
