package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONLinesAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.jsonl")
	type row struct {
		Filename string `json:"filename"`
	}
	require.NoError(t, WriteJSONLinesAtomic(path, []row{{"a.pdf"}, {"b.pdf"}}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"filename\":\"a.pdf\"}\n{\"filename\":\"b.pdf\"}\n", string(b))
}

func TestWriteTextAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_review.md")
	require.NoError(t, WriteTextAtomic(path, "first"))
	require.NoError(t, WriteTextAtomic(path, "## Introduction"))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## Introduction", string(b))
}

func TestWriteJSONAtomicFailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.json")
	require.NoError(t, WriteJSONAtomic(path, map[string]string{"status": "COMPLETED"}))

	require.Error(t, WriteJSONAtomic(path, map[string]any{"bad": make(chan int)}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "COMPLETED")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
