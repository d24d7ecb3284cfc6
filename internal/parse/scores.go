package parse

import "essaygrader/internal/rubric"

// Scores maps every criterion to its extracted digits or NotAvailable.
type Scores map[rubric.Criterion]string

func (s Scores) Missing() []rubric.Criterion {
	var out []rubric.Criterion
	for _, c := range rubric.All {
		if v, ok := s[c]; !ok || v == NotAvailable {
			out = append(out, c)
		}
	}
	return out
}

func (s Scores) Complete() bool {
	return len(s.Missing()) == 0
}

// ExtractScores searches the whole reply, not only the summary zone. The
// first matching line per criterion wins. Values are not range checked.
func ExtractScores(reply string) Scores {
	out := make(Scores, len(rubric.All))
	for _, c := range rubric.All {
		out[c] = firstGroup(scorePatterns[c].FindStringSubmatch(reply))
	}
	return out
}

// ExtractGrade accepts "Grade: 87/100" as well as a bare "Grade: 87".
func ExtractGrade(reply string) string {
	return firstGroup(gradePattern.FindStringSubmatch(reply))
}

func firstGroup(m []string) string {
	if len(m) < 2 {
		return NotAvailable
	}
	return m[1]
}
