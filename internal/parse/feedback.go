package parse

import "strings"

type Feedback struct {
	Strengths   string `json:"strengths"`
	Weaknesses  string `json:"weaknesses"`
	Suggestions string `json:"suggestions"`
}

func (f Feedback) Get(s Section) string {
	switch s {
	case Strengths:
		return f.Strengths
	case Weaknesses:
		return f.Weaknesses
	case Suggestions:
		return f.Suggestions
	}
	return NotProvided
}

func (f Feedback) Missing() []Section {
	var out []Section
	for _, s := range Sections {
		if f.Get(s) == NotProvided {
			out = append(out, s)
		}
	}
	return out
}

func ExtractFeedback(reply string) Feedback {
	return Feedback{
		Strengths:   ExtractSection(reply, Strengths),
		Weaknesses:  ExtractSection(reply, Weaknesses),
		Suggestions: ExtractSection(reply, Suggestions),
	}
}

// ExtractSection returns the text after the first header of s up to the
// nearest following header of any other section. Blank bodies count as
// missing.
func ExtractSection(reply string, s Section) string {
	pat, ok := sectionPatterns[s]
	if !ok {
		return NotProvided
	}
	loc := pat.FindStringIndex(reply)
	if loc == nil {
		return NotProvided
	}
	start, end := loc[1], len(reply)
	rest := reply[start:]
	for other, op := range sectionPatterns {
		if other == s {
			continue
		}
		if next := op.FindStringIndex(rest); next != nil && start+next[0] < end {
			end = start + next[0]
		}
	}
	body := strings.TrimSpace(reply[start:end])
	if body == "" {
		return NotProvided
	}
	return body
}
