package meeting

import (
	"regexp"
	"strings"
)

var (
	// A blank (or whitespace-only) line between two paragraphs
	paragraphBreakRegex = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
	lineBreakRegex      = regexp.MustCompile(`\r?\n`)
	whitespaceRegex     = regexp.MustCompile(`\s+`)
)

// ParsePlain splits untimed text into segments. When the text contains
// blank-line-separated paragraphs each paragraph becomes one segment (its
// lines joined by spaces); otherwise every non-empty line is a segment.
func ParsePlain(text string) []Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pieces []string
	if paragraphBreakRegex.MatchString(text) {
		for _, p := range paragraphBreakRegex.Split(text, -1) {
			pieces = append(pieces, whitespaceRegex.ReplaceAllString(strings.TrimSpace(p), " "))
		}
	} else {
		pieces = lineBreakRegex.Split(text, -1)
	}

	segments := make([]Segment, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, Segment{Text: p})
		}
	}
	return segments
}
