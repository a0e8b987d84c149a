package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusIsTerminal(t *testing.T) {
	assert.False(t, RunPending.IsTerminal())
	assert.False(t, RunRunning.IsTerminal())
	assert.True(t, RunCompleted.IsTerminal())
	assert.True(t, RunFailed.IsTerminal())
	assert.False(t, RunStatus("DONE").Valid())
}

func TestDisplayNameFallback(t *testing.T) {
	assert.Equal(t, "Literature review n°7", ReviewRun{ID: 7}.DisplayName())
	assert.Equal(t, "mine", ReviewRun{ID: 7, Name: "mine"}.DisplayName())
}

func TestSettingsNormalize(t *testing.T) {
	s := Settings{FindingsChars: 200, WritingStyleText: "terse"}.Normalize()
	assert.Equal(t, 5000, s.ResearchQuestionChars)
	assert.Equal(t, 200, s.FindingsChars)
	assert.Equal(t, 1500, s.ComposeMaxTokens)
	assert.Equal(t, "terse", s.WritingStyleText)
}

func TestPaperRecordTitle(t *testing.T) {
	assert.Equal(t, "a.pdf", PaperRecord{Filename: "a.pdf"}.Title())
	assert.Equal(t, "T", PaperRecord{Filename: "a.pdf", Metadata: Metadata{Title: "T"}}.Title())
}
