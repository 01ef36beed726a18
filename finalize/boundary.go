package finalize

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Boundary is the sentence-boundary guess for a partial hypothesis.
type Boundary int

const (
	Unknown Boundary = iota
	MidSentence
	EndOfSentence
)

func (b Boundary) String() string {
	switch b {
	case Unknown:
		return "unknown"
	case MidSentence:
		return "mid_sentence"
	case EndOfSentence:
		return "end_of_sentence"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。':
		return true
	}
	return false
}

func endsWithTerminator(text string) bool {
	if text == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text)
	return isTerminator(r)
}

// Classify guesses whether current closes a sentence. A trailing ellipsis
// always means more is coming; a terminator only counts as the end when the
// previous hypothesis was terminated too.
func Classify(current, previous string) Boundary {
	if strings.HasSuffix(current, ellipsis) {
		return MidSentence
	}
	if endsWithTerminator(current) && endsWithTerminator(previous) {
		return EndOfSentence
	}
	return Unknown
}
