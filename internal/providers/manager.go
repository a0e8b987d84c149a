package providers

import (
	"context"
	"fmt"
	"strings"

	"litreview/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	return m, nil
}

// LLM returns a provider that tries the configured providers in preferred
// order, real providers before the mock.
func (m *Manager) LLM() LLMProvider {
	order := preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
	chain := make([]NamedLLMProvider, 0, len(order))
	for _, i := range order {
		chain = append(chain, m.llmProviders[i])
	}
	return &failoverLLM{providers: chain}
}

// Embedder returns the first preferred embedding provider.
func (m *Manager) Embedder() EmbeddingProvider {
	order := preferredOrder(len(m.embedProviders), func(i int) string { return strings.ToLower(m.embedProviders[i].Ref.Name) })
	return m.embedProviders[order[0]].Provider
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

func (m *Manager) EmbedCount() int {
	return len(m.embedProviders)
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

// failoverLLM moves to the next provider on failure. When every provider
// fails and one of them was rate limited, the rate limit is reported so the
// caller can back off instead of giving up.
type failoverLLM struct {
	providers []NamedLLMProvider
}

func (f *failoverLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var firstErr error
	var rateLimited error
	var lastInfo ProviderInfo
	for _, p := range f.providers {
		resp, info, err := p.Provider.Generate(ctx, req)
		if err == nil {
			return resp, info, nil
		}
		lastInfo = info
		if ctx.Err() != nil {
			return GenerateResponse{}, info, ctx.Err()
		}
		if _, ok := AsRateLimit(err); ok && rateLimited == nil {
			rateLimited = err
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("llm generate via %s failed: %w", p.Ref.Raw, err)
		}
	}
	if rateLimited != nil {
		return GenerateResponse{}, lastInfo, rateLimited
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no llm provider configured")
	}
	return GenerateResponse{}, lastInfo, firstErr
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
