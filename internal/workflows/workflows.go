package workflows

import (
	"time"

	"litreview/internal/activities"
	"litreview/internal/analysis"
	"litreview/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetProgress = "GetProgress"

const (
	stageStarting  = "starting"
	stageIngest    = "ingest"
	stageAnalyze   = "analyze"
	stageThemes    = "themes"
	stageAssemble  = "assemble"
	stageFinishing = "finishing"
	stageDone      = "done"
)

func retryPolicy(attempts int32) *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    2 * time.Second,
		BackoffCoefficient: 2,
		MaximumInterval:    20 * time.Second,
		MaximumAttempts:    attempts,
	}
}

// ReviewRunWorkflow is the durable form of a review run: ingest, per-paper
// analysis in batches, theme assignment, assembly and the terminal save. A
// run that fails any stage is stored FAILED and the workflow still completes,
// returning the stored status.
func ReviewRunWorkflow(ctx workflow.Context, input ReviewRunInput) (string, error) {
	progress := ReviewProgress{
		RunID:    input.RunID,
		Stage:    stageStarting,
		Status:   string(models.RunRunning),
		PerPaper: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (ReviewProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}
	logger := workflow.GetLogger(ctx)

	shortCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         retryPolicy(3),
	})
	longCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy:         retryPolicy(2),
	})

	fail := func(err error) (string, error) {
		progress.Error = err.Error()
		logger.Error("review run failed", "run_id", input.RunID, "stage", progress.Stage, "error", err)
		return finish(ctx, &progress, activities.FinishRunInput{RunID: input.RunID, Error: err.Error()})
	}

	if err := workflow.ExecuteActivity(shortCtx, "MarkRunRunningActivity", activities.MarkRunRunningInput{RunID: input.RunID}).Get(ctx, nil); err != nil {
		return "", err
	}

	var settings models.Settings
	if err := workflow.ExecuteActivity(shortCtx, "LoadSettingsActivity").Get(ctx, &settings); err != nil {
		return fail(err)
	}

	progress.Stage = stageIngest
	var ingestOut activities.IngestCorpusOutput
	if err := workflow.ExecuteActivity(longCtx, "IngestCorpusActivity", activities.IngestCorpusInput{
		RunID:      input.RunID,
		FolderPath: input.FolderPath,
		Settings:   settings,
	}).Get(ctx, &ingestOut); err != nil {
		return fail(err)
	}
	papers := ingestOut.Papers
	progress.Total = len(papers)
	for _, p := range papers {
		progress.PerPaper[p.Filename] = "pending"
	}

	progress.Stage = stageAnalyze
	maxConcurrent := input.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	records := make([]models.PaperRecord, 0, len(papers))
	for i := 0; i < len(papers); i += maxConcurrent {
		end := i + maxConcurrent
		if end > len(papers) {
			end = len(papers)
		}
		futures := make([]workflow.Future, 0, end-i)
		for _, p := range papers[i:end] {
			progress.PerPaper[p.Filename] = "analyzing"
			futures = append(futures, workflow.ExecuteActivity(longCtx, "AnalyzePaperActivity", activities.AnalyzePaperInput{RunID: input.RunID, Paper: p}))
		}
		for idx, f := range futures {
			paper := papers[i+idx]
			var rec models.PaperRecord
			if err := f.Get(ctx, &rec); err != nil {
				if temporal.IsCanceledError(err) {
					progress.PerPaper[paper.Filename] = "failed"
					return fail(err)
				}
				// the paper keeps its place in the review with empty fields
				logger.Warn("paper analysis failed", "run_id", input.RunID, "paper", paper.Filename, "error", err)
				progress.PerPaper[paper.Filename] = "degraded"
				progress.Degraded++
				records = append(records, analysis.EmptyRecord(paper))
				continue
			}
			progress.PerPaper[paper.Filename] = "analyzed"
			progress.Analyzed++
			records = append(records, rec)
		}
	}

	progress.Stage = stageThemes
	var themed activities.AssignThemesOutput
	if err := workflow.ExecuteActivity(longCtx, "AssignThemesActivity", activities.AssignThemesInput{RunID: input.RunID, Papers: records}).Get(ctx, &themed); err != nil {
		return fail(err)
	}

	progress.Stage = stageAssemble
	var result models.ReviewResult
	if err := workflow.ExecuteActivity(longCtx, "AssembleReviewActivity", activities.AssembleReviewInput{
		RunID:       input.RunID,
		Papers:      themed.Papers,
		Themes:      themed.Themes,
		StyleSample: input.StyleSample,
		Settings:    settings,
	}).Get(ctx, &result); err != nil {
		return fail(err)
	}
	if result.Error != "" {
		progress.Error = result.Error
	}
	return finish(ctx, &progress, activities.FinishRunInput{RunID: input.RunID, Result: &result})
}

// finish stores the terminal state. It runs on a disconnected context so a
// cancelled workflow still records its run as finished.
func finish(ctx workflow.Context, progress *ReviewProgress, in activities.FinishRunInput) (string, error) {
	progress.Stage = stageFinishing
	dctx, _ := workflow.NewDisconnectedContext(ctx)
	dctx = workflow.WithActivityOptions(dctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         retryPolicy(5),
	})
	var out activities.FinishRunOutput
	if err := workflow.ExecuteActivity(dctx, "FinishRunActivity", in).Get(dctx, &out); err != nil {
		return "", err
	}
	progress.Stage = stageDone
	progress.Status = string(out.Status)
	return progress.Status, nil
}
