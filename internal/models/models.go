package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// IsTerminal reports whether a run in this status may no longer change.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed:
		return true
	}
	return false
}

var ErrTerminalRun = errors.New("run already finished")

type ReviewRun struct {
	ID         int64           `json:"id"`
	FolderPath string          `json:"folder_path"`
	Name       string          `json:"name"`
	Status     RunStatus       `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// DisplayName falls back to a numbered label when the run was not named.
func (r ReviewRun) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("Literature review n°%d", r.ID)
}

// Metadata is the structured bibliographic record of a paper. Raw holds the
// model output verbatim when it could not be parsed.
type Metadata struct {
	Title    string   `json:"title,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	Year     string   `json:"year,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Raw      string   `json:"raw_output,omitempty"`
}

func (m Metadata) IsZero() bool {
	return m.Title == "" && len(m.Authors) == 0 && m.Journal == "" && m.Year == "" &&
		m.DOI == "" && len(m.Keywords) == 0 && m.Raw == ""
}

type Reference struct {
	ID      string   `json:"id,omitempty"`
	Full    string   `json:"full,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Title   string   `json:"title,omitempty"`
	Year    string   `json:"year,omitempty"`
	Raw     string   `json:"raw_output,omitempty"`
}

type PaperRecord struct {
	Filename         string      `json:"filename"`
	PaperID          string      `json:"paper_id,omitempty"`
	Metadata         Metadata    `json:"metadata"`
	ResearchQuestion string      `json:"research_question"`
	Methodology      []string    `json:"methodology"`
	Findings         []string    `json:"findings"`
	Gaps             []string    `json:"gaps"`
	Themes           []string    `json:"themes"`
	Citations        []Reference `json:"citations,omitempty"`
}

// Title is the metadata title, or the filename when none was extracted.
func (p PaperRecord) Title() string {
	if p.Metadata.Title != "" {
		return p.Metadata.Title
	}
	return p.Filename
}

// ReviewResult is the full intermediate state of an assembled review.
type ReviewResult struct {
	Status       RunStatus           `json:"status"`
	Papers       []PaperRecord       `json:"papers"`
	Themes       map[string][]string `json:"themes"`
	RawDraft     string              `json:"raw_draft,omitempty"`
	StyledDraft  string              `json:"styled_draft,omitempty"`
	StyleApplied bool                `json:"style_applied"`
	FinalReview  string              `json:"final_review"`
	Error        string              `json:"error,omitempty"`
	Elapsed      string              `json:"elapsed,omitempty"`
}

type Settings struct {
	ResearchQuestionChars int    `json:"research_question_chars"`
	MethodologyChars      int    `json:"methodology_chars"`
	FindingsChars         int    `json:"findings_chars"`
	GapsChars             int    `json:"gaps_chars"`
	ComposeMaxTokens      int    `json:"compose_max_tokens"`
	EditMaxTokens         int    `json:"edit_max_tokens"`
	WritingStyleText      string `json:"writing_style_text,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		ResearchQuestionChars: 5000,
		MethodologyChars:      5000,
		FindingsChars:         5000,
		GapsChars:             5000,
		ComposeMaxTokens:      1500,
		EditMaxTokens:         1500,
	}
}

// Normalize replaces non-positive limits with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.ResearchQuestionChars <= 0 {
		s.ResearchQuestionChars = d.ResearchQuestionChars
	}
	if s.MethodologyChars <= 0 {
		s.MethodologyChars = d.MethodologyChars
	}
	if s.FindingsChars <= 0 {
		s.FindingsChars = d.FindingsChars
	}
	if s.GapsChars <= 0 {
		s.GapsChars = d.GapsChars
	}
	if s.ComposeMaxTokens <= 0 {
		s.ComposeMaxTokens = d.ComposeMaxTokens
	}
	if s.EditMaxTokens <= 0 {
		s.EditMaxTokens = d.EditMaxTokens
	}
	return s
}
