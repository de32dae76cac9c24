package sanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy allows safe user-generated content with basic formatting.
	UGCPolicy = bluemonday.UGCPolicy()
)

// Text strips all HTML tags. The development server applies it to event
// titles, locations and user names before storing them.
func Text(input string) string {
	return StrictPolicy.Sanitize(input)
}

// HTML keeps safe formatting only. Used for event descriptions.
func HTML(input string) string {
	return UGCPolicy.Sanitize(input)
}

// Display turns server-supplied text into something safe to print on a
// terminal: markup is dropped, entities are decoded and control characters
// (including escape sequences) are removed. Newlines and tabs survive.
func Display(input string) string {
	plain := html.UnescapeString(StrictPolicy.Sanitize(input))
	plain = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, plain)
	return strings.TrimSpace(plain)
}

// Line is Display folded onto a single line, for table cells and one-line
// error messages.
func Line(input string) string {
	return strings.Join(strings.Fields(Display(input)), " ")
}
