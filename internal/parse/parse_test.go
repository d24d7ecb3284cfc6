package parse

import (
	"strings"
	"testing"
	"testing/quick"

	"essaygrader/internal/rubric"

	"github.com/stretchr/testify/require"
)

const compliantReply = `My summer was very fun [Comment: "very fun" is vague; be specific.] and I learned alot [Comment: should be "a lot".].
We went to the beach every day.

Grammar: 80
Vocabulary: 72
Coherence: 75
Spelling: 68
Structure: 70
Grade: 74/100
Strengths:
Clear personal voice.
Weaknesses:
Vague adjectives and spelling slips.
Suggestions for improvement:
Use concrete details.`

func TestSegmentSplitsAtEarliestKeyword(t *testing.T) {
	reply := "Essay text [Comment: ok]\nVocabulary: 70\nGrammar: 80\nGrade: 75/100"
	seg := Segment(reply)
	require.True(t, seg.Found())
	require.Equal(t, "Vocabulary:", seg.Keyword)
	require.Equal(t, "Essay text [Comment: ok]\n", seg.Annotation)
	require.True(t, strings.HasPrefix(seg.Summary, "Vocabulary: 70"))
}

func TestSegmentFallbackWithoutKeywords(t *testing.T) {
	reply := "The model ignored the layout entirely. [Comment: still marked]"
	seg := Segment(reply)
	require.False(t, seg.Found())
	require.Equal(t, -1, seg.SplitAt)
	require.Equal(t, reply, seg.Annotation)
	require.Equal(t, "", seg.Summary)
}

func TestSegmentIsLossless(t *testing.T) {
	f := func(prefix, suffix string, kw uint8) bool {
		reply := prefix + SectionKeywords[int(kw)%len(SectionKeywords)] + suffix
		seg := Segment(reply)
		if seg.Annotation+seg.Summary != reply {
			return false
		}
		plain := Segment(prefix)
		return plain.Annotation+plain.Summary == prefix
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestExtractGrade(t *testing.T) {
	cases := map[string]string{
		"Grade: 87/100":              "87",
		"Grade: 87":                  "87",
		"  grade - 90 / 100  ":       "90",
		"Grade 150":                  "150",
		"Some text\nGrade: 64/100\r": "64",
		"No grade here":              NotAvailable,
		"Grade: eighty":              NotAvailable,
		"Grade: 87/10":               NotAvailable,
	}
	for in, want := range cases {
		require.Equal(t, want, ExtractGrade(in), "input %q", in)
	}
}

func TestExtractScoresAcceptsSeparators(t *testing.T) {
	for _, c := range rubric.All {
		reply := "intro\n" + c.Label() + " - 72\noutro"
		require.Equal(t, "72", ExtractScores(reply)[c], "criterion %s", c)
	}
	s := ExtractScores("grammar 55\nVOCABULARY: 60")
	require.Equal(t, "55", s[rubric.Grammar])
	require.Equal(t, "60", s[rubric.Vocabulary])
	require.Equal(t, NotAvailable, s[rubric.Structure])
	require.ElementsMatch(t, []rubric.Criterion{rubric.Coherence, rubric.Spelling, rubric.Structure}, s.Missing())
}

func TestExtractScoresFirstMatchWins(t *testing.T) {
	s := ExtractScores("Grammar: 40\nGrammar: 90")
	require.Equal(t, "40", s[rubric.Grammar])
}

func TestExtractScoresIgnoresInlineMentions(t *testing.T) {
	s := ExtractScores("Your grammar: 3 errors in the second paragraph.")
	require.Equal(t, NotAvailable, s[rubric.Grammar])
}

func TestExtractFeedbackCanonicalOrder(t *testing.T) {
	fb := ExtractFeedback(compliantReply)
	require.Equal(t, "Clear personal voice.", fb.Strengths)
	require.Equal(t, "Vague adjectives and spelling slips.", fb.Weaknesses)
	require.Equal(t, "Use concrete details.", fb.Suggestions)
	require.Empty(t, fb.Missing())
}

func TestExtractFeedbackIsOrderIndependent(t *testing.T) {
	canonical := "Strengths:\nS body\nWeaknesses:\nW body\nSuggestions for improvement:\nG body"
	shuffled := "Weaknesses:\nW body\nStrengths:\nS body\nSuggestions for improvement:\nG body"
	require.Equal(t, ExtractFeedback(canonical), ExtractFeedback(shuffled))

	reversed := "suggestions for improvement: G body\nWEAKNESSES: W body\nstrengths: S body"
	require.Equal(t, Feedback{Strengths: "S body", Weaknesses: "W body", Suggestions: "G body"}, ExtractFeedback(reversed))
}

func TestExtractFeedbackMissingSections(t *testing.T) {
	fb := ExtractFeedback("Strengths:\nGood flow.\nWeaknesses:\n")
	require.Equal(t, "Good flow.", fb.Strengths)
	require.Equal(t, NotProvided, fb.Weaknesses)
	require.Equal(t, NotProvided, fb.Suggestions)
	require.Equal(t, []Section{Weaknesses, Suggestions}, fb.Missing())
}

func TestExtractFeedbackMultiline(t *testing.T) {
	fb := ExtractFeedback("Strengths:\n- one\n- two\n\nWeaknesses: none")
	require.Equal(t, "- one\n- two", fb.Strengths)
	require.Equal(t, "none", fb.Weaknesses)
}

func TestMarkInline(t *testing.T) {
	got := MarkInline("Hello [Comment: fix this] world")
	require.Equal(t, "Hello "+MarkerOpen+"[Comment: fix this]"+MarkerClose+" world", got)

	two := MarkInline("a [Comment: one] b [comment: two\nlines] c")
	require.Equal(t, "a "+MarkerOpen+"[Comment: one]"+MarkerClose+" b "+MarkerOpen+"[comment: two\nlines]"+MarkerClose+" c", two)

	plain := "No markers [here] at all."
	require.Equal(t, plain, MarkInline(plain))
}

func TestMarkInlineIsIdempotent(t *testing.T) {
	zone := "x [Comment: a] y [COMMENT: b] z"
	once := MarkInline(zone)
	require.Equal(t, once, MarkInline(once))
	require.Equal(t, 2, strings.Count(once, MarkerOpen))
}

func TestMarkInlineStopsAtFirstBracket(t *testing.T) {
	got := MarkInline("[Comment: a] b]")
	require.Equal(t, MarkerOpen+"[Comment: a]"+MarkerClose+" b]", got)
}

func TestFindMarkers(t *testing.T) {
	zone := "Hello [Comment: fix this] world"
	spans := FindMarkers(zone)
	require.Len(t, spans, 1)
	require.Equal(t, "[Comment: fix this]", zone[spans[0].Start:spans[0].End])
	require.Empty(t, FindMarkers("nothing"))
}

func TestParseReplyCompliant(t *testing.T) {
	r := ParseReply(compliantReply)
	require.Empty(t, r.Degraded())
	require.Equal(t, "74", r.Grade)
	require.Equal(t, "68", r.Scores[rubric.Spelling])
	require.Len(t, r.Markers, 2)
	require.NotContains(t, r.Segments.Annotation, "Grammar: 80")
}

func TestParseReplyDegraded(t *testing.T) {
	r := ParseReply("Nice essay.")
	d := r.Degraded()
	require.Contains(t, d, "no section keywords found")
	require.Contains(t, d, "missing grade")
	require.Contains(t, d, "missing section: strengths")
	require.Equal(t, NotAvailable, r.Scores[rubric.Grammar])
}
