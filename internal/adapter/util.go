package adapter

import (
	"html"
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first so double-encoded content (Greenhouse) is
// handled, then tags are stripped and whitespace collapsed.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return strings.Join(strings.Fields(plain), " ")
}

// isWinnipeg is the location heuristic applied before enrichment.
func isWinnipeg(location, description string) bool {
	return strings.Contains(strings.ToLower(location), "winnipeg") ||
		strings.Contains(strings.ToLower(description), "winnipeg")
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
