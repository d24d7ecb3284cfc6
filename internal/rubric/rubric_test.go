package rubric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCriteria(t *testing.T) {
	got, err := ParseCriteria(" Grammar, vocabulary,,grammar ,STRUCTURE")
	require.NoError(t, err)
	require.Equal(t, []Criterion{Grammar, Vocabulary, Structure}, got)

	_, err = ParseCriteria("grammar, rhetoric")
	require.Error(t, err)
}

func TestLabel(t *testing.T) {
	require.Equal(t, "Vocabulary", Vocabulary.Label())
	require.Equal(t, "", Criterion("").Label())
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, Weights{Grammar: 30, Vocabulary: 25, Coherence: 25, Spelling: 20, Structure: 0}.Validate())
	require.Error(t, Weights{Grammar: 101}.Validate())
	require.Error(t, Weights{Grammar: -1}.Validate())
	require.Error(t, Weights{Criterion("style"): 10}.Validate())
}

func TestWeightsTotalAndClone(t *testing.T) {
	w := Weights{Grammar: 30, Vocabulary: 60}
	require.Equal(t, 90, w.Total())
	c := w.Clone()
	require.Len(t, c, len(All))
	require.Equal(t, 0, c[Structure])
	c[Grammar] = 1
	require.Equal(t, 30, w[Grammar])
}

func TestLookupPreset(t *testing.T) {
	p, ok := LookupPreset("ielts")
	require.True(t, ok)
	require.Equal(t, 100, p.Weights.Total())
	_, ok = LookupPreset("GRE")
	require.False(t, ok)
}
