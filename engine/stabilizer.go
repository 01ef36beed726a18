package engine

import "strings"

const tailMatchLength = 10

// stabilizer smooths successive realtime hypotheses for one utterance. The
// safe text is the longest common prefix seen between two consecutive
// hypotheses; it only ever grows.
type stabilizer struct {
	prev string
	seen int
	safe []rune
}

func (s *stabilizer) Add(text string) string {
	text = strings.TrimSpace(text)
	cur := []rune(text)

	if s.seen > 0 {
		prefix := commonPrefix([]rune(s.prev), cur)
		if len(prefix) >= len(s.safe) {
			s.safe = prefix
		}
	}
	s.prev = text
	s.seen++

	pos := tailMatch(s.safe, cur, tailMatchLength)
	switch {
	case pos >= 0:
		return string(s.safe) + string(cur[pos:])
	case len(s.safe) > 0:
		return string(s.safe)
	default:
		return text
	}
}

func commonPrefix(a, b []rune) []rune {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return append([]rune(nil), a[:n]...)
}

// tailMatch finds the last occurrence in text of the final n runes of safe
// and returns the index just past it, or -1.
func tailMatch(safe, text []rune, n int) int {
	if len(safe) < n || len(text) < n {
		return -1
	}
	target := string(safe[len(safe)-n:])
	for end := len(text); end >= n; end-- {
		if string(text[end-n:end]) == target {
			return end
		}
	}
	return -1
}
