package parse

import "strings"

type Segments struct {
	Annotation string `json:"annotation"`
	Summary    string `json:"summary"`
	// SplitAt is the byte offset of the first section keyword, or -1.
	SplitAt int    `json:"split_at"`
	Keyword string `json:"keyword,omitempty"`
}

// Found reports whether any section keyword was present.
func (s Segments) Found() bool {
	return s.SplitAt >= 0
}

// Segment splits a reply at the earliest section keyword. Annotation+Summary
// always equals the input. Without any keyword the whole reply is the
// annotation zone.
func Segment(reply string) Segments {
	at, keyword := -1, ""
	for _, kw := range SectionKeywords {
		i := strings.Index(reply, kw)
		if i < 0 {
			continue
		}
		if at == -1 || i < at {
			at, keyword = i, kw
		}
	}
	if at < 0 {
		return Segments{Annotation: reply, SplitAt: -1}
	}
	return Segments{Annotation: reply[:at], Summary: reply[at:], SplitAt: at, Keyword: keyword}
}
