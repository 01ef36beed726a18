package finalize

import (
	"strings"
	"unicode"
)

// TranscriptLog is the append-only list of finalized sentences of a session.
type TranscriptLog struct {
	entries []string
}

// cleanFinal trims trailing whitespace and drops a trailing "..", which
// turns a closing "..." into a single period.
func cleanFinal(text string) string {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	return strings.TrimSuffix(text, "..")
}

// Append stores text after cleanup and reports whether anything was added.
func (l *TranscriptLog) Append(text string) bool {
	text = cleanFinal(text)
	if text == "" {
		return false
	}
	l.entries = append(l.entries, text)
	return true
}

func (l *TranscriptLog) Len() int { return len(l.entries) }

// Entries returns the sentences with their alternating display style.
func (l *TranscriptLog) Entries() []Segment {
	segs := make([]Segment, len(l.entries))
	for i, text := range l.entries {
		segs[i] = Segment{Text: text, Style: Style(i % 2)}
	}
	return segs
}

// Text joins all sentences with single spaces.
func (l *TranscriptLog) Text() string {
	return strings.Join(l.entries, " ")
}
