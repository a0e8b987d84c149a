package analysis

import (
	"strings"

	"litreview/internal/providers"
)

const (
	OpMetadata         = "metadata"
	OpResearchQuestion = "research_question"
	OpMethodology      = "methodology"
	OpFindings         = "findings"
	OpGaps             = "gaps"
	OpCitations        = "citations"
	OpThemeLabel       = "theme_label"
)

const metadataPrompt = `Extract the metadata of the following paper: title, authors, journal, year, DOI and keywords.
Return STRICT JSON with this schema:
{"title": "string", "authors": ["string"], "journal": "string", "year": "string", "doi": "string", "keywords": ["string"]}
Use an empty string or empty list for anything the text does not state.`

const researchQuestionPrompt = `Extract the main research question or hypothesis from the following academic paper excerpt.
Respond in one sentence.`

const methodologyPrompt = `Summarize the methodology of the following paper excerpt.
Include study type, data sources and key techniques.
Provide 3-4 concise bullet points, one per line.`

const findingsPrompt = `Synthesize the key findings of the following paper excerpt.
Provide 3-5 concise bullet points, one per line.`

const gapsPrompt = `Identify the research gaps, limitations and future work stated in the following paper excerpt.
Provide 2-4 concise bullet points, one per line.`

const citationsPrompt = `Identify and extract every bibliographic reference in the following excerpt.
Return a JSON list of objects with the fields:
- id: reference number, starting from 1
- full: full reference string
- authors: list of author names
- title: title of the paper, book or chapter
- year: year of publication
If no references are found, return an empty list.`

const themeLabelPrompt = `Given the following paper titles, which were grouped together by topic, provide a concise theme label for the group.
Respond with the label only.`

// promptFor builds the request for one per-paper analysis operation.
func promptFor(op, text string) providers.GenerateRequest {
	var role, instructions string
	switch op {
	case OpMetadata:
		role, instructions = "You are an academic metadata extractor.", metadataPrompt
	case OpResearchQuestion:
		role, instructions = "You are a research question extraction agent.", researchQuestionPrompt
	case OpMethodology:
		role, instructions = "You are a methodology summarization agent.", methodologyPrompt
	case OpFindings:
		role, instructions = "You are a findings synthesis agent.", findingsPrompt
	case OpGaps:
		role, instructions = "You are a research gap identification agent.", gapsPrompt
	case OpCitations:
		role, instructions = "You are a citation extraction agent.", citationsPrompt
	}
	return providers.GenerateRequest{
		Operation:  op,
		SystemRole: role,
		Prompt:     instructions + "\n\n" + strings.TrimSpace(text),
	}
}

func themeLabelRequest(titles []string) providers.GenerateRequest {
	var b strings.Builder
	b.WriteString(themeLabelPrompt)
	b.WriteString("\n\n")
	for _, t := range titles {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	return providers.GenerateRequest{
		Operation:  OpThemeLabel,
		SystemRole: "You are an academic assistant.",
		Prompt:     strings.TrimSpace(b.String()),
		MaxTokens:  32,
	}
}
