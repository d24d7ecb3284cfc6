package grading

import (
	"fmt"
	"strings"

	"essaygrader/internal/parse"
	"essaygrader/internal/rubric"
)

const (
	EssayStart = "--- ESSAY START ---"
	EssayEnd   = "--- ESSAY END ---"
)

// BuildPrompt renders the grading instructions for r. The reply layout it
// asks for is what the parse package extracts; change both together.
func BuildPrompt(r Request) string {
	var b strings.Builder

	level := "a student's"
	if r.GradeLevel != "" {
		level = "a " + r.GradeLevel + " student's"
	}
	fmt.Fprintf(&b, "You are an experienced English teacher grading %s essay.\n", level)
	fmt.Fprintf(&b, "Your tone should be %s. Be %s.\n\n", r.Tone, r.Strictness)

	b.WriteString("Grading Rubric and Weights:\n")
	for _, c := range rubric.All {
		fmt.Fprintf(&b, "- %s (%s): %d%%\n", c.Label(), c.Description(), r.Weights[c])
	}
	b.WriteString("\n")

	labels := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		labels = append(labels, string(c))
	}
	fmt.Fprintf(&b, "Focus on these criteria: %s.\n", strings.Join(labels, ", "))
	if r.Instructions != "" {
		b.WriteString(r.Instructions)
		b.WriteString("\n")
	}

	b.WriteString("Please follow these instructions VERY carefully:\n")
	b.WriteString("1. DO NOT rewrite or paraphrase the essay content itself. Only add comments.\n")
	b.WriteString("2. For every correction, suggestion, or observation you make about the text, you MUST immediately insert an inline comment enclosed exactly like this: [Comment: your comment here]. Place the comment directly after the text it refers to. Do not add comments anywhere else.\n")
	b.WriteString("3. Do NOT provide any feedback, summaries, corrections, or suggestions outside of these specific inline [Comment: ...] annotations.\n")
	b.WriteString("4. After processing the entire essay and adding all inline comments, output the rubric scores (scale 0-100) with each score on a new line in the exact format:\n")
	for _, c := range rubric.All {
		fmt.Fprintf(&b, "   %s: XX\n", c.Label())
	}
	b.WriteString("5. Immediately after the rubric scores, output the overall weighted grade on a new line in the exact format:\n")
	b.WriteString("   Grade: YY/100\n")
	b.WriteString("6. Finally, include three sections exactly in this order (each starting on a new line with the header followed by the content on the next line(s)):\n")
	for _, s := range parse.Sections {
		fmt.Fprintf(&b, "   %s\n   [List %s here]\n", sectionHeader(s), s)
	}
	b.WriteString("\nNow, grade this essay strictly following all the rules above:\n")
	b.WriteString(EssayStart + "\n")
	b.WriteString(r.Essay)
	b.WriteString("\n" + EssayEnd + "\n")
	return b.String()
}

func sectionHeader(s parse.Section) string {
	switch s {
	case parse.Strengths:
		return "Strengths:"
	case parse.Weaknesses:
		return "Weaknesses:"
	default:
		return "Suggestions for improvement:"
	}
}
