package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"litreview/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsMissingFolder(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", filepath.Join(t.TempDir(), "absent")})

	err := root.Execute()
	require.ErrorIs(t, err, util.ErrFolderNotFound)
	assert.Empty(t, out.String())
}

func TestRunRequiresFolderArgument(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run"})
	require.Error(t, root.Execute())
}

func TestRunFailsWhenFolderHasNoPDFs(t *testing.T) {
	t.Setenv("LITREVIEW_POSTGRES_URL", "")
	t.Setenv("LITREVIEW_LLM_PROVIDERS", "mock")
	t.Setenv("LITREVIEW_EMBED_PROVIDERS", "mock")
	t.Setenv("LITREVIEW_DATA_OUT", t.TempDir())
	output := filepath.Join(t.TempDir(), "out.json")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run", t.TempDir(), "--output", output, "--name", "empty"})
	require.Error(t, root.Execute())

	b, err := os.ReadFile(output)
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(b, &payload))
	assert.Contains(t, payload["error"], "no PDFs found")
	assert.Contains(t, out.String(), "empty: FAILED")
	assert.Contains(t, out.String(), "Elapsed time:")
}

func TestDescribeStyleMissingFile(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"describe-style", filepath.Join(t.TempDir(), "none.txt")})
	require.ErrorContains(t, root.Execute(), "read sample")
}
