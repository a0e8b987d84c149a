package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	in := "ab\x00cd\x01\x02\n\txy"
	out := SanitizeText(in)
	if out != "abcd\n\txy" {
		t.Fatalf("unexpected sanitized output: %q", out)
	}
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "héll", TruncateRunes("héllo", 4))
	require.Equal(t, "héllo", TruncateRunes("héllo", 5))
	require.Equal(t, "héllo", TruncateRunes("héllo", 50))
	require.Equal(t, "héllo", TruncateRunes("héllo", 0))
	require.Equal(t, "", TruncateRunes("", 3))
}

func TestWriteJSONAtomicAndHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")
	require.NoError(t, WriteJSONAtomic(path, map[string]int{"a": 1}))
	require.True(t, IsDir(filepath.Dir(path)))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"a": 1`)

	sum, err := SHA256HexFile(path)
	require.NoError(t, err)
	require.Len(t, sum, 64)
}
