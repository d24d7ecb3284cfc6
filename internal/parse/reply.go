package parse

// Reply is everything extracted from one raw model reply.
type Reply struct {
	Raw      string   `json:"raw"`
	Segments Segments `json:"segments"`
	Scores   Scores   `json:"scores"`
	Grade    string   `json:"grade"`
	Feedback Feedback `json:"feedback"`
	Markers  []Span   `json:"markers"`
}

// Degraded lists the parts of the layout the model did not follow. An empty
// result means every value was found.
func (r Reply) Degraded() []string {
	var out []string
	if !r.Segments.Found() {
		out = append(out, "no section keywords found")
	}
	for _, c := range r.Scores.Missing() {
		out = append(out, "missing score: "+string(c))
	}
	if r.Grade == NotAvailable {
		out = append(out, "missing grade")
	}
	for _, s := range r.Feedback.Missing() {
		out = append(out, "missing section: "+string(s))
	}
	return out
}

// ParseReply runs every extractor over the same immutable reply.
func ParseReply(raw string) Reply {
	seg := Segment(raw)
	return Reply{
		Raw:      raw,
		Segments: seg,
		Scores:   ExtractScores(raw),
		Grade:    ExtractGrade(raw),
		Feedback: ExtractFeedback(raw),
		Markers:  FindMarkers(seg.Annotation),
	}
}
