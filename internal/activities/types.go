package activities

import (
	"litreview/internal/ingest"
	"litreview/internal/models"
)

type MarkRunRunningInput struct {
	RunID int64 `json:"run_id"`
}

type IngestCorpusInput struct {
	RunID      int64           `json:"run_id"`
	FolderPath string          `json:"folder_path"`
	Settings   models.Settings `json:"settings"`
}

type IngestCorpusOutput struct {
	Papers []ingest.PaperSections `json:"papers"`
}

type AnalyzePaperInput struct {
	RunID int64                `json:"run_id"`
	Paper ingest.PaperSections `json:"paper"`
}

type AssignThemesInput struct {
	RunID  int64                `json:"run_id"`
	Papers []models.PaperRecord `json:"papers"`
}

type AssignThemesOutput struct {
	Papers []models.PaperRecord `json:"papers"`
	Themes map[string][]string  `json:"themes"`
}

type AssembleReviewInput struct {
	RunID       int64                `json:"run_id"`
	Papers      []models.PaperRecord `json:"papers"`
	Themes      map[string][]string  `json:"themes"`
	StyleSample string               `json:"style_sample,omitempty"`
	Settings    models.Settings      `json:"settings"`
}

// FinishRunInput carries either the assembled result or the error that ended
// the run.
type FinishRunInput struct {
	RunID  int64                `json:"run_id"`
	Result *models.ReviewResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

type FinishRunOutput struct {
	Status models.RunStatus `json:"status"`
}
