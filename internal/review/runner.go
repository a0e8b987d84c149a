package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"litreview/internal/analysis"
	"litreview/internal/capability"
	"litreview/internal/ingest"
	"litreview/internal/models"
	"litreview/internal/observability"
	"litreview/internal/sections"
	"litreview/internal/util"

	"github.com/rs/zerolog"
)

// ErrRunFailed is what callers of Run see when the run failed unexpectedly;
// the cause is logged and kept in the run's result payload.
var ErrRunFailed = errors.New("an error occurred while generating the literature review")

// ErrRunNotSaved wraps a store failure while recording a terminal state. The
// run is still RUNNING in the store and the save should be retried.
var ErrRunNotSaved = errors.New("run state not saved")

type RunStore interface {
	Create(ctx context.Context, run models.ReviewRun) (models.ReviewRun, error)
	Save(ctx context.Context, run models.ReviewRun) error
}

type SettingsStore interface {
	Get(ctx context.Context) (models.Settings, error)
}

type Request struct {
	FolderPath  string `json:"folder_path"`
	Name        string `json:"name,omitempty"`
	StyleSample string `json:"style_sample,omitempty"`
}

// Runner drives one review run end to end and owns its status transitions.
type Runner struct {
	Runs      RunStore
	Settings  SettingsStore
	Defaults  models.Settings
	Ingestor  *ingest.Ingestor
	Analyzer  *analysis.Analyzer
	Themer    *analysis.Themer
	Sequencer *Sequencer
	// OutRoot receives per-run artifacts; empty disables them.
	OutRoot string
	Logger  zerolog.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// LoadSettings returns the stored settings, or the defaults when the store
// is missing or unavailable.
func (r *Runner) LoadSettings(ctx context.Context) models.Settings {
	if r.Settings == nil {
		return r.Defaults.Normalize()
	}
	s, err := r.Settings.Get(ctx)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("settings unavailable, using defaults")
		return r.Defaults.Normalize()
	}
	return s.Normalize()
}

// ArtifactPath is where a run's named artifact is written, or "" when
// artifacts are disabled.
func (r *Runner) ArtifactPath(runID int64, name string) string {
	if r.OutRoot == "" {
		return ""
	}
	return filepath.Join(r.OutRoot, "runs", strconv.FormatInt(runID, 10), name)
}

// Start records a new RUNNING run.
func (r *Runner) Start(ctx context.Context, req Request) (models.ReviewRun, error) {
	run, err := r.Runs.Create(ctx, models.ReviewRun{
		FolderPath: req.FolderPath,
		Name:       req.Name,
		Status:     models.RunRunning,
		StartedAt:  r.now(),
	})
	if err != nil {
		return models.ReviewRun{}, fmt.Errorf("create run: %w", err)
	}
	r.Logger.Info().Int64("run_id", run.ID).Str("folder", req.FolderPath).Msg("review run started")
	return run, nil
}

// Run creates a run and executes it. Any error or panic marks the run FAILED
// and is reported as ErrRunFailed. A run that fails its token budget is
// FAILED without an error.
func (r *Runner) Run(ctx context.Context, req Request) (models.ReviewRun, error) {
	run, err := r.Start(ctx, req)
	if err != nil {
		return run, err
	}
	return r.Execute(ctx, run, req)
}

func (r *Runner) Execute(ctx context.Context, run models.ReviewRun, req Request) (out models.ReviewRun, err error) {
	logger := observability.WithRunContext(r.Logger, run.ID, req.FolderPath)
	defer func() {
		if p := recover(); p != nil {
			out, err = r.Fail(ctx, run, fmt.Errorf("panic: %v", p))
		}
	}()

	result, err := r.assemble(capability.WithRun(ctx, run.ID), run, req, logger)
	if err != nil {
		return r.Fail(ctx, run, err)
	}
	return r.Finish(ctx, run, result)
}

func (r *Runner) assemble(ctx context.Context, run models.ReviewRun, req Request, logger zerolog.Logger) (models.ReviewResult, error) {
	settings := r.LoadSettings(ctx)
	snap, err := r.Ingestor.Ingest(ctx, req.FolderPath, sections.LimitsFromSettings(settings), r.ArtifactPath(run.ID, "snapshot.json"))
	if err != nil {
		return models.ReviewResult{}, err
	}
	records, err := r.Analyzer.AnalyzeCorpus(ctx, snap)
	if err != nil {
		return models.ReviewResult{}, err
	}
	records, themes, err := r.Themer.Assign(ctx, records)
	if err != nil {
		return models.ReviewResult{}, err
	}
	style := req.StyleSample
	if style == "" {
		style = settings.WritingStyleText
	}
	logger.Info().Int("papers", len(records)).Int("themes", len(themes)).Msg("assembling review")
	return r.Sequencer.Assemble(ctx, records, themes, style, settings)
}

// Finish stores result as the run's terminal state. The result status must be
// COMPLETED or FAILED.
func (r *Runner) Finish(ctx context.Context, run models.ReviewRun, result models.ReviewResult) (models.ReviewRun, error) {
	if !result.Status.IsTerminal() {
		return r.Fail(ctx, run, fmt.Errorf("review ended in non-terminal status %q", result.Status))
	}
	finished := r.now()
	result.Elapsed = finished.Sub(run.StartedAt).Round(time.Millisecond).String()
	payload, err := json.Marshal(result)
	if err != nil {
		return r.Fail(ctx, run, fmt.Errorf("encode result: %w", err))
	}
	run.Status = result.Status
	run.Result = payload
	run.FinishedAt = &finished
	if err := r.Runs.Save(ctx, run); err != nil {
		return run, fmt.Errorf("%w: run %d: %w", ErrRunNotSaved, run.ID, err)
	}
	r.writeArtifacts(run, result)
	r.Metrics.ObserveRun(string(run.Status), finished.Sub(run.StartedAt))
	r.Logger.Info().Int64("run_id", run.ID).Str("status", string(run.Status)).Str("elapsed", result.Elapsed).Msg("review run finished")
	return run, nil
}

// Fail marks the run FAILED with cause in its payload and returns ErrRunFailed.
// When the store rejects the update the error also wraps ErrRunNotSaved.
func (r *Runner) Fail(ctx context.Context, run models.ReviewRun, cause error) (models.ReviewRun, error) {
	failed, err := r.MarkFailed(ctx, run, cause)
	if err != nil {
		r.Logger.Error().Err(err).Int64("run_id", run.ID).Msg("could not record failed run")
		return failed, errors.Join(ErrRunFailed, err)
	}
	return failed, ErrRunFailed
}

// MarkFailed stores run as FAILED with cause in its payload. It returns only
// the store error, wrapped with ErrRunNotSaved.
func (r *Runner) MarkFailed(ctx context.Context, run models.ReviewRun, cause error) (models.ReviewRun, error) {
	r.Logger.Error().Err(cause).Int64("run_id", run.ID).Msg("review run failed")
	finished := r.now()
	payload, _ := json.Marshal(map[string]string{"error": cause.Error()})
	run.Status = models.RunFailed
	run.Result = payload
	run.FinishedAt = &finished
	if err := r.Runs.Save(ctx, run); err != nil {
		return run, fmt.Errorf("%w: run %d: %w", ErrRunNotSaved, run.ID, err)
	}
	r.Metrics.ObserveRun(string(run.Status), finished.Sub(run.StartedAt))
	return run, nil
}

func (r *Runner) writeArtifacts(run models.ReviewRun, result models.ReviewResult) {
	if path := r.ArtifactPath(run.ID, "result.json"); path != "" {
		if err := util.WriteJSONAtomic(path, result); err != nil {
			r.Logger.Warn().Err(err).Str("path", path).Msg("could not write result artifact")
		}
	}
	if path := r.ArtifactPath(run.ID, "papers.jsonl"); path != "" && len(result.Papers) > 0 {
		if err := util.WriteJSONLinesAtomic(path, result.Papers); err != nil {
			r.Logger.Warn().Err(err).Str("path", path).Msg("could not write paper records")
		}
	}
	if result.Status != models.RunCompleted {
		return
	}
	if path := r.ArtifactPath(run.ID, "final_review.md"); path != "" {
		if err := util.WriteTextAtomic(path, result.FinalReview); err != nil {
			r.Logger.Warn().Err(err).Str("path", path).Msg("could not write review artifact")
		}
	}
}
