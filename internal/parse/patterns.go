// Package parse extracts structure from free-text grading replies.
//
// The model is asked to follow a fixed layout (see grading.BuildPrompt), but
// compliance is unreliable, so every extractor degrades to a sentinel value
// instead of failing. All patterns live in this file so they can be tuned and
// tested together with the prompt wording.
package parse

import (
	"fmt"
	"regexp"

	"essaygrader/internal/rubric"
)

const (
	NotAvailable = "N/A"
	NotProvided  = "Not provided"
)

// SectionKeywords mark the start of the summary zone. Matching is case
// sensitive, the way the prompt spells them.
var SectionKeywords = []string{"Grammar:", "Vocabulary:", "Coherence:", "Spelling:", "Structure:", "Grade:"}

var (
	scorePatterns = buildScorePatterns()
	gradePattern  = regexp.MustCompile(`(?im)^[ \t]*Grade[ \t]*[:\-]?[ \t]*(\d{1,3})(?:[ \t]*/[ \t]*100)?[ \t\r]*$`)

	// MarkerOpen and MarkerClose wrap an inline model comment.
	MarkerOpen  = `<mark class="ai-comment">`
	MarkerClose = `</mark>`

	markerPattern = regexp.MustCompile(`(?is)\[comment:.*?\]`)
	// wrapped markers come first in the alternation so they are consumed whole
	// and never wrapped a second time.
	markInlinePattern = regexp.MustCompile(`(?is)` + regexp.QuoteMeta(MarkerOpen) + `\[comment:.*?\]` + regexp.QuoteMeta(MarkerClose) + `|\[comment:.*?\]`)
)

type Section string

const (
	Strengths   Section = "strengths"
	Weaknesses  Section = "weaknesses"
	Suggestions Section = "suggestions"
)

// Sections in the order the prompt requests them.
var Sections = []Section{Strengths, Weaknesses, Suggestions}

var sectionPatterns = map[Section]*regexp.Regexp{
	Strengths:   regexp.MustCompile(`(?i)\bstrengths[ \t]*:`),
	Weaknesses:  regexp.MustCompile(`(?i)\bweaknesses[ \t]*:`),
	Suggestions: regexp.MustCompile(`(?i)\bsuggestions(?:[ \t]+for[ \t]+improvement)?[ \t]*:`),
}

func buildScorePatterns() map[rubric.Criterion]*regexp.Regexp {
	out := make(map[rubric.Criterion]*regexp.Regexp, len(rubric.All))
	for _, c := range rubric.All {
		out[c] = regexp.MustCompile(fmt.Sprintf(`(?im)^[ \t]*%s[ \t]*[:\-]?[ \t]*(\d{1,3})[ \t\r]*$`, regexp.QuoteMeta(c.Label())))
	}
	return out
}
