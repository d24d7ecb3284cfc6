package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SanitizeText removes bytes and control characters that text columns and
// the HTML parser reject (NUL in particular shows up in some PDF extractors),
// normalizes line endings and composes the text to NFC so rune offsets
// computed in the browser line up with the server's.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(norm.NFC.String(string(r)))
}

// Preview shortens s to at most maxRunes runes on one line, for log fields.
func Preview(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	cut := string(r[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > maxRunes/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
