package grading

import (
	"strings"
	"testing"

	"essaygrader/internal/rubric"

	"github.com/stretchr/testify/require"
)

func TestBuildPromptContract(t *testing.T) {
	essay := "Teh cat sat.\n\nIt was  happy."
	req, err := NewRequest(essay, Options{
		Weights:      rubric.Weights{rubric.Grammar: 30, rubric.Vocabulary: 25, rubric.Coherence: 25, rubric.Spelling: 20},
		Tone:         "detailed",
		Strictness:   "lenient",
		GradeLevel:   "10th grade",
		Instructions: "Pay attention to commas.",
	})
	require.NoError(t, err)
	p := BuildPrompt(req)

	for _, want := range []string{
		"grading a 10th grade student's essay",
		"Your tone should be detailed. Be lenient.",
		"- Grammar (sentence structure, punctuation, subject-verb agreement): 30%",
		"- Spelling (correct spelling): 20%",
		"- Structure (organization: intro, body, conclusion): 0%",
		"Focus on these criteria: grammar, vocabulary, coherence, spelling.",
		"Pay attention to commas.",
		"DO NOT rewrite or paraphrase the essay",
		"[Comment: your comment here]",
		"   Grammar: XX\n   Vocabulary: XX\n   Coherence: XX\n   Spelling: XX\n   Structure: XX\n",
		"   Grade: YY/100\n",
		EssayStart + "\n" + essay + "\n" + EssayEnd,
	} {
		require.Contains(t, p, want)
	}

	s := strings.Index(p, "Strengths:")
	w := strings.Index(p, "Weaknesses:")
	g := strings.Index(p, "Suggestions for improvement:")
	require.True(t, s > 0 && s < w && w < g, "sections out of order")
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	req, err := NewRequest("Same essay.", Options{Preset: "AP"})
	require.NoError(t, err)
	require.Equal(t, BuildPrompt(req), BuildPrompt(req))
	require.NotContains(t, BuildPrompt(req), "grading a  student")
}
