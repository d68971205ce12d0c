package ingest

import (
	"regexp"
	"strings"
)

// Compiled once at package init; both patterns run on every header and alias.
var (
	separatorPattern   = regexp.MustCompile(`[_\s-]`)
	nonAlphanumPattern = regexp.MustCompile(`[^a-z0-9]`)
)

// Normalize maps a header or alias to its comparison key: lower-cased with
// separators and every other non-alphanumeric character removed.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = separatorPattern.ReplaceAllString(s, "")
	return nonAlphanumPattern.ReplaceAllString(s, "")
}
