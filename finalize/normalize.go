package finalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "..."

// Normalize returns the canonical form of a raw engine hypothesis: leading
// whitespace and leading ellipsis markers removed, first character uppercased.
func Normalize(raw string) string {
	text := strings.TrimLeftFunc(raw, unicode.IsSpace)
	for strings.HasPrefix(text, ellipsis) {
		text = strings.TrimLeftFunc(text[len(ellipsis):], unicode.IsSpace)
	}
	if text == "" {
		return text
	}

	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError && size <= 1 {
		return text
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return text
	}
	return string(upper) + text[size:]
}
