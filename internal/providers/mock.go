package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// MockProvider returns deterministic output so the whole pipeline runs offline.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	var text string
	switch strings.ToLower(req.Operation) {
	case "metadata":
		text = `{"title": "Mock Paper", "authors": ["A. Author"], "journal": "Mock Journal", "year": 2024, "doi": "", "keywords": ["mock"]}`
	case "research_question":
		text = "What does the mock paper investigate?"
	case "methodology", "findings", "gaps":
		text = "- Deterministic " + req.Operation + " point one.\n- Deterministic " + req.Operation + " point two."
	case "citations":
		text = `[{"id": "1", "full": "A. Author. Mock Reference. 2020.", "authors": ["A. Author"], "title": "Mock Reference", "year": "2020"}]`
	case "theme_label":
		text = "Mock Theme"
	case "compose":
		text = "## Introduction\nMock introduction.\n\n## Thematic Synthesis\nMock synthesis.\n\n## Research Gaps\nMock gaps.\n\n## Conclusion\nMock conclusion."
	case "style":
		text = "## Introduction\nMock introduction, restyled."
	case "edit":
		text = "## Introduction\nMock introduction [1].\n\n## References\n[1] A. Author, \"Mock Paper,\" Mock Journal, 2024."
	case "describe_style":
		text = "Concise academic prose in the third person."
	default:
		text = "Mock response."
	}
	return GenerateResponse{Text: text}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / (float64(sum) + 1e-9))
	for i := range v {
		v[i] *= inv
	}
	return v
}
