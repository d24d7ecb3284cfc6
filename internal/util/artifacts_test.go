package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteJSONAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "result.json")
	in := map[string]string{"grade": "85"}
	require.NoError(t, WriteJSONAtomic(path, in))

	var out map[string]string
	require.NoError(t, ReadJSON(path, &out))
	require.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteJSONLinesAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.jsonl")
	rows := []struct {
		File  string `json:"file"`
		Grade string `json:"grade"`
	}{{"a.txt", "90"}, {"b.txt", "N/A"}}
	require.NoError(t, WriteJSONLinesAtomic(path, rows))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Equal(t, []string{`{"file":"a.txt","grade":"90"}`, `{"file":"b.txt","grade":"N/A"}`}, lines)
}

func TestSafeJoin(t *testing.T) {
	require.Equal(t, filepath.Join("/out", "essay.txt"), SafeJoin("/out", "../../etc/essay.txt"))
}
