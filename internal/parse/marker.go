package parse

import "strings"

type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FindMarkers returns the byte spans of every "[Comment: ...]" marker. The
// body ends at the first closing bracket.
func FindMarkers(zone string) []Span {
	locs := markerPattern.FindAllStringIndex(zone, -1)
	out := make([]Span, 0, len(locs))
	for _, l := range locs {
		out = append(out, Span{Start: l[0], End: l[1]})
	}
	return out
}

// MarkInline wraps each raw marker with MarkerOpen/MarkerClose and leaves
// every other byte alone. Markers that are already wrapped are skipped, so
// applying it twice equals applying it once.
func MarkInline(zone string) string {
	return markInlinePattern.ReplaceAllStringFunc(zone, func(m string) string {
		if strings.HasPrefix(m, MarkerOpen) {
			return m
		}
		return MarkerOpen + m + MarkerClose
	})
}
