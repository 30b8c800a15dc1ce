package linkresolver

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const defaultMaxSummaryChars = 600

// summarizeHTML produces a short textual summary for rawURL's HTML
// body: the page title, the readability excerpt (or the meta
// description), and the lead paragraph of the readability-extracted
// text, joined and truncated to maxChars. It never returns an error — HTML on
// the open web is too unreliable to treat extraction failure as fatal;
// a degraded (title-only, or empty) summary is still useful.
func summarizeHTML(htmlBytes []byte, rawURL string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultMaxSummaryChars
	}

	title, description := extractMeta(htmlBytes)

	pageURL, _ := url.Parse(rawURL) //nolint:errcheck // rawURL already validated by the caller

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), pageURL)
	if err != nil {
		return truncate(joinNonEmpty(title, description), maxChars)
	}

	body := article.TextContent
	if body == "" {
		body = article.Excerpt
	}

	if title == "" {
		title = article.Title
	}

	summary := joinNonEmpty(title, firstOf(article.Excerpt, description), leadParagraph(body))

	return truncate(summary, maxChars)
}

func extractMeta(htmlBytes []byte) (title, description string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && title == "" {
		title = strings.TrimSpace(og)
	}

	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		description = strings.TrimSpace(desc)
	} else if og, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		description = strings.TrimSpace(og)
	}

	return title, description
}

func leadParagraph(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		return strings.TrimSpace(text[:idx])
	}

	return text
}

func firstOf(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}

	return ""
}

func joinNonEmpty(parts ...string) string {
	var nonEmpty []string

	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return strings.Join(nonEmpty, " — ")
}

func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}

	runes := []rune(s)

	return string(runes[:maxChars]) + "..."
}
