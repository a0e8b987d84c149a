package activities

import (
	"context"
	"errors"
	"fmt"

	"litreview/internal/capability"
	"litreview/internal/models"
	"litreview/internal/review"
	"litreview/internal/sections"
	"litreview/internal/util"

	"go.temporal.io/sdk/temporal"
)

const (
	errTypeInput    = "InvalidInput"
	errTypeFinished = "RunFinished"
)

type RunReader interface {
	Get(ctx context.Context, id int64) (models.ReviewRun, error)
}

// Activities expose the stages of a review run to a Temporal worker. The
// runner owns the pipeline; the activities only split it into durable steps.
type Activities struct {
	runner *review.Runner
	runs   RunReader
}

func New(runner *review.Runner, runs RunReader) *Activities {
	return &Activities{runner: runner, runs: runs}
}

func (a *Activities) MarkRunRunningActivity(ctx context.Context, in MarkRunRunningInput) error {
	run, err := a.runs.Get(ctx, in.RunID)
	if err != nil {
		return fmt.Errorf("load run %d: %w", in.RunID, err)
	}
	if run.Status.IsTerminal() {
		return temporal.NewNonRetryableApplicationError(fmt.Sprintf("run %d is %s", run.ID, run.Status), errTypeFinished, models.ErrTerminalRun)
	}
	if run.Status == models.RunRunning {
		return nil
	}
	run.Status = models.RunRunning
	return a.runner.Runs.Save(ctx, run)
}

func (a *Activities) LoadSettingsActivity(ctx context.Context) (models.Settings, error) {
	return a.runner.LoadSettings(ctx), nil
}

func (a *Activities) IngestCorpusActivity(ctx context.Context, in IngestCorpusInput) (IngestCorpusOutput, error) {
	snap, err := a.runner.Ingestor.Ingest(ctx, in.FolderPath, sections.LimitsFromSettings(in.Settings.Normalize()), a.runner.ArtifactPath(in.RunID, "snapshot.json"))
	if err != nil {
		if isInputError(err) {
			return IngestCorpusOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeInput, err)
		}
		return IngestCorpusOutput{}, err
	}
	out := IngestCorpusOutput{}
	for _, name := range snap.Filenames() {
		out.Papers = append(out.Papers, snap[name])
	}
	return out, nil
}

// AnalyzePaperActivity never fails on model errors; a degraded field is an
// empty value in the record.
func (a *Activities) AnalyzePaperActivity(ctx context.Context, in AnalyzePaperInput) (models.PaperRecord, error) {
	rec := a.runner.Analyzer.AnalyzePaper(capability.WithRun(ctx, in.RunID), in.Paper)
	if err := ctx.Err(); err != nil {
		return models.PaperRecord{}, err
	}
	return rec, nil
}

func (a *Activities) AssignThemesActivity(ctx context.Context, in AssignThemesInput) (AssignThemesOutput, error) {
	papers, themes, err := a.runner.Themer.Assign(capability.WithRun(ctx, in.RunID), in.Papers)
	if err != nil {
		return AssignThemesOutput{}, err
	}
	return AssignThemesOutput{Papers: papers, Themes: themes}, nil
}

func (a *Activities) AssembleReviewActivity(ctx context.Context, in AssembleReviewInput) (models.ReviewResult, error) {
	style := in.StyleSample
	if style == "" {
		style = in.Settings.WritingStyleText
	}
	return a.runner.Sequencer.Assemble(capability.WithRun(ctx, in.RunID), in.Papers, in.Themes, style, in.Settings.Normalize())
}

// FinishRunActivity stores the terminal state of a run. Finishing a run that
// is already terminal reports the stored status, so a retried attempt is a
// no-op.
func (a *Activities) FinishRunActivity(ctx context.Context, in FinishRunInput) (FinishRunOutput, error) {
	run, err := a.runs.Get(ctx, in.RunID)
	if err != nil {
		return FinishRunOutput{}, fmt.Errorf("load run %d: %w", in.RunID, err)
	}
	if run.Status.IsTerminal() {
		return FinishRunOutput{Status: run.Status}, nil
	}
	if in.Error != "" || in.Result == nil {
		cause := in.Error
		if cause == "" {
			cause = "review run ended without a result"
		}
		failed, err := a.runner.MarkFailed(ctx, run, errors.New(cause))
		if err != nil {
			return FinishRunOutput{}, err
		}
		return FinishRunOutput{Status: failed.Status}, nil
	}
	done, err := a.runner.Finish(ctx, run, *in.Result)
	if err != nil {
		if errors.Is(err, models.ErrTerminalRun) {
			return FinishRunOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeFinished, err)
		}
		if errors.Is(err, review.ErrRunNotSaved) || !errors.Is(err, review.ErrRunFailed) {
			return FinishRunOutput{}, err
		}
	}
	return FinishRunOutput{Status: done.Status}, nil
}

func isInputError(err error) bool {
	return errors.Is(err, util.ErrFolderNotFound) || errors.Is(err, util.ErrNoPDFs) || errors.Is(err, util.ErrNoUsablePapers)
}
