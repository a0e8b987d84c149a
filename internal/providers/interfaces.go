package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

// GenerateRequest is one TextTransform call. Operation names the analysis step
// for auditing and for the mock provider's canned output.
type GenerateRequest struct {
	Operation  string   `json:"operation"`
	SystemRole string   `json:"system_role"`
	Prompt     string   `json:"prompt"`
	Context    []string `json:"context,omitempty"`
	MaxTokens  int      `json:"max_tokens,omitempty"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

const defaultSystemRole = "You are an expert research assistant."

func systemRoleOrDefault(role string) string {
	if role == "" {
		return defaultSystemRole
	}
	return role
}
