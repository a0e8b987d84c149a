package review

import (
	"context"
	"errors"
	"sync"
	"testing"

	"litreview/internal/capability"
	"litreview/internal/models"
	"litreview/internal/providers"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder counts calls per operation and answers with the mock provider
// unless an error is configured for the operation.
type recorder struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts map[string]string
	fail    map[string]error
}

func newRecorder() *recorder {
	return &recorder{calls: map[string]int{}, prompts: map[string]string{}, fail: map[string]error{}}
}

func (r *recorder) fn(ctx context.Context, req providers.GenerateRequest) (string, error) {
	r.mu.Lock()
	r.calls[req.Operation]++
	r.prompts[req.Operation] = req.Prompt
	err := r.fail[req.Operation]
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return capability.FromProvider(providers.NewMockProvider(8), nil, nil, zerolog.Nop())(ctx, req)
}

func (r *recorder) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func testPapers() []models.PaperRecord {
	return []models.PaperRecord{
		{Filename: "a.pdf", Metadata: models.Metadata{Title: "Deep Paper", DOI: "10.1/deep"}, Methodology: []string{"m"}},
		{Filename: "b.pdf", Metadata: models.Metadata{Raw: "unparsed"}},
	}
}

func newTestSequencer(rec *recorder, ceiling int) *Sequencer {
	guard := capability.Guard{Counter: capability.ApproxCounter{}, Ceiling: ceiling}
	return NewSequencer(rec.fn, capability.DefaultPolicy(), guard, 0, zerolog.Nop())
}

func TestAssembleWithStyle(t *testing.T) {
	rec := newRecorder()
	s := newTestSequencer(rec, 100000)
	res, err := s.Assemble(context.Background(), testPapers(), map[string][]string{"T": {"Deep Paper"}}, "Short sentences.", models.Settings{})
	require.NoError(t, err)

	assert.Equal(t, models.RunCompleted, res.Status)
	assert.True(t, res.StyleApplied)
	assert.Contains(t, res.RawDraft, "## Thematic Synthesis")
	assert.Equal(t, "## Introduction\nMock introduction, restyled.", res.StyledDraft)
	assert.Contains(t, res.FinalReview, "## References")
	assert.Len(t, res.Papers, 2)
	assert.Equal(t, 1, rec.count(OpCompose))
	assert.Equal(t, 1, rec.count(OpStyle))
	assert.Equal(t, 1, rec.count(OpEdit))
	assert.Contains(t, rec.prompts[OpStyle], "Short sentences.")
	assert.Contains(t, rec.prompts[OpEdit], "Deep Paper")
	assert.Contains(t, rec.prompts[OpEdit], "10.1/deep")
	assert.Contains(t, rec.prompts[OpEdit], "restyled")
	assert.Equal(t, DefaultStyleMaxTokens, s.StyleMaxTokens)
}

func TestAssembleWithoutStylePassesDraftThrough(t *testing.T) {
	rec := newRecorder()
	res, err := newTestSequencer(rec, 100000).Assemble(context.Background(), testPapers(), nil, "   ", models.Settings{})
	require.NoError(t, err)
	assert.False(t, res.StyleApplied)
	assert.Equal(t, res.RawDraft, res.StyledDraft)
	assert.Zero(t, rec.count(OpStyle))
	assert.Equal(t, models.RunCompleted, res.Status)
}

func TestAssembleOverBudgetSkipsEveryCall(t *testing.T) {
	rec := newRecorder()
	res, err := newTestSequencer(rec, 10).Assemble(context.Background(), testPapers(), nil, "style", models.Settings{})
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, res.Status)
	assert.Equal(t, TooManyPapersMessage, res.FinalReview)
	assert.Contains(t, res.Error, "ceiling is 10")
	assert.Empty(t, res.RawDraft)
	assert.Zero(t, rec.count(OpCompose))
	assert.Zero(t, rec.count(OpStyle))
	assert.Zero(t, rec.count(OpEdit))
}

func TestAssemblePropagatesEditFailure(t *testing.T) {
	rec := newRecorder()
	rec.fail[OpEdit] = errors.New("model unavailable")
	res, err := newTestSequencer(rec, 0).Assemble(context.Background(), testPapers(), nil, "", models.Settings{})
	require.ErrorContains(t, err, "edit review")
	assert.NotEqual(t, models.RunCompleted, res.Status)
	assert.NotEmpty(t, res.RawDraft)
}

func TestDescribeStyle(t *testing.T) {
	rec := newRecorder()
	s := newTestSequencer(rec, 0)
	out, err := s.DescribeStyle(context.Background(), "We argue, and we argue firmly.")
	require.NoError(t, err)
	assert.Equal(t, "Concise academic prose in the third person.", out)

	_, err = s.DescribeStyle(context.Background(), " \n ")
	require.Error(t, err)
	assert.Equal(t, 1, rec.count(OpDescribeStyle))
}
