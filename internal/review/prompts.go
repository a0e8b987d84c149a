package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"litreview/internal/models"
	"litreview/internal/providers"
)

const (
	OpCompose       = "compose"
	OpStyle         = "style"
	OpEdit          = "edit"
	OpDescribeStyle = "describe_style"
)

// TooManyPapersMessage replaces the review when the compose prompt is over budget.
const TooManyPapersMessage = "Too many papers were selected: the combined analysis exceeds the token budget of a single review. Select fewer papers and start a new run."

const composePrompt = `You are a senior researcher tasked with writing a literature review.
Given the following structured data for multiple papers, draft a comprehensive review.
Structure the output with the headings:
1. Introduction
2. Thematic Synthesis
3. Research Gaps
4. Conclusion
Write in academic style and cite each paper by its title in parentheses where appropriate.`

const stylePrompt = `Rewrite the following literature review so that it matches the provided writing style as closely as possible.
---
Writing style example:
%s
---
Keep the academic tone, structure and content of the review but adapt phrasing, sentence structure and word choice to the given style. Do not add or remove information.`

const editPrompt = `Refine the following literature review draft for academic clarity, coherence and readability. Also:
- Format all in-text citations and the reference list in IEEE style (numbered [1], [2], ...).
- Use the paper metadata below for every reference and include the DOI when known.
- Keep the section headings intact.
- Put the formatted reference list at the end under the heading "References".`

const describeStylePrompt = `Analyze the following text and give a concise, objective description of the author's writing style.
Focus on tone, structure, vocabulary, sentence complexity and notable stylistic features.
Do not summarize the content. The text is an extract of a research paper.`

type composePaper struct {
	Filename         string          `json:"filename"`
	Metadata         models.Metadata `json:"metadata"`
	ResearchQuestion string          `json:"research_question"`
	Methodology      []string        `json:"methodology"`
	Findings         []string        `json:"findings"`
	Themes           []string        `json:"themes"`
	Gaps             []string        `json:"gaps"`
}

type paperMetadata struct {
	Filename string          `json:"filename"`
	Metadata models.Metadata `json:"metadata"`
}

func composeRequest(papers []models.PaperRecord, themes map[string][]string, maxTokens int) (providers.GenerateRequest, error) {
	payload := struct {
		Papers []composePaper       `json:"papers"`
		Themes map[string][]string `json:"themes,omitempty"`
	}{Themes: themes}
	for _, p := range papers {
		payload.Papers = append(payload.Papers, composePaper{
			Filename:         p.Filename,
			Metadata:         p.Metadata,
			ResearchQuestion: p.ResearchQuestion,
			Methodology:      p.Methodology,
			Findings:         p.Findings,
			Themes:           p.Themes,
			Gaps:             p.Gaps,
		})
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return providers.GenerateRequest{}, fmt.Errorf("encode compose payload: %w", err)
	}
	return providers.GenerateRequest{
		Operation:  OpCompose,
		SystemRole: "You are a literature review composer.",
		Prompt:     composePrompt + "\n\n" + string(b),
		MaxTokens:  maxTokens,
	}, nil
}

func styleRequest(draft, sample string, maxTokens int) providers.GenerateRequest {
	return providers.GenerateRequest{
		Operation:  OpStyle,
		SystemRole: "You are a scholarly writing style applier.",
		Prompt:     fmt.Sprintf(stylePrompt, strings.TrimSpace(sample)) + "\n\n" + draft,
		MaxTokens:  maxTokens,
	}
}

func editRequest(draft string, papers []models.PaperRecord, maxTokens int) (providers.GenerateRequest, error) {
	meta := make([]paperMetadata, 0, len(papers))
	for _, p := range papers {
		meta = append(meta, paperMetadata{Filename: p.Filename, Metadata: p.Metadata})
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return providers.GenerateRequest{}, fmt.Errorf("encode paper metadata: %w", err)
	}
	return providers.GenerateRequest{
		Operation:  OpEdit,
		SystemRole: "You are a scholarly editor assistant.",
		Prompt:     editPrompt + "\n\nPaper metadata:\n" + string(b) + "\n\nDraft:\n" + draft,
		MaxTokens:  maxTokens,
	}, nil
}

func describeStyleRequest(sample string, maxTokens int) providers.GenerateRequest {
	return providers.GenerateRequest{
		Operation:  OpDescribeStyle,
		SystemRole: "You are a writing style analysis assistant.",
		Prompt:     describeStylePrompt + "\n\n" + sample,
		MaxTokens:  maxTokens,
	}
}
