package providers

import (
	"context"
	"errors"
	"testing"

	"litreview/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	text  string
	err   error
	calls int
}

func (s *stubLLM) Generate(context.Context, GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	s.calls++
	return GenerateResponse{Text: s.text}, ProviderInfo{Name: "stub"}, s.err
}

func TestFailoverMovesToNextProvider(t *testing.T) {
	bad := &stubLLM{err: errors.New("boom")}
	good := &stubLLM{text: "ok"}
	f := &failoverLLM{providers: []NamedLLMProvider{{Ref: ProviderRef{Raw: "a"}, Provider: bad}, {Ref: ProviderRef{Raw: "b"}, Provider: good}}}
	resp, _, err := f.Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 1, bad.calls)
}

func TestFailoverSurfacesRateLimitWhenAllFail(t *testing.T) {
	rl := &stubLLM{err: &RateLimitError{Provider: "a"}}
	bad := &stubLLM{err: errors.New("boom")}
	f := &failoverLLM{providers: []NamedLLMProvider{{Provider: bad}, {Provider: rl}}}
	_, _, err := f.Generate(context.Background(), GenerateRequest{})
	_, ok := AsRateLimit(err)
	assert.True(t, ok)
}

func TestManagerDefaultsToMock(t *testing.T) {
	m, err := NewManager(config.Config{LLMProviders: "", EmbedProviders: "mock", EmbedDim: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, m.LLMCount())
	resp, info, err := m.LLM().Generate(context.Background(), GenerateRequest{Operation: "theme_label"})
	require.NoError(t, err)
	assert.Equal(t, "mock", info.Name)
	assert.Equal(t, "Mock Theme", resp.Text)

	vecs, _, err := m.Embedder().Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
}

func TestManagerRejectsUnknownProvider(t *testing.T) {
	_, err := NewManager(config.Config{LLMProviders: "nope"})
	require.Error(t, err)
}
