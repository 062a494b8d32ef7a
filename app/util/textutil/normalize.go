package textutil

import (
	"regexp"
	"strings"
)

var (
	annotationRe = regexp.MustCompile(`【[^【】]*?】`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}[ \t]*`)
	spacesRe     = regexp.MustCompile(` {2,}`)
)

// Normalize cleans assistant output for display: citation annotations like
// 【4:0†source】, heading hashes and bold markers are stripped, space runs are
// collapsed. Safe to apply twice.
func Normalize(raw string) string {
	s := annotationRe.ReplaceAllString(raw, "")
	s = headingRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = spacesRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// EscapeHTML makes arbitrary user or model text safe for HTML-rendering
// sinks. Ampersand goes first so entities are not double-escaped backwards.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")

	return s
}
