package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"litreview/internal/config"
	"litreview/internal/models"
	"litreview/internal/storage"
	"litreview/internal/workflows"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

const maxStyleSampleBytes = 1 << 20

type RunStore interface {
	Create(ctx context.Context, run models.ReviewRun) (models.ReviewRun, error)
	Save(ctx context.Context, run models.ReviewRun) error
	Get(ctx context.Context, id int64) (models.ReviewRun, error)
	List(ctx context.Context, limit int) ([]models.ReviewRun, error)
}

type SettingsStore interface {
	Get(ctx context.Context) (models.Settings, error)
	Put(ctx context.Context, s models.Settings) (models.Settings, error)
}

// WorkflowClient is the part of the Temporal client the server uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type StyleDescriber interface {
	DescribeStyle(ctx context.Context, sample string) (string, error)
}

type Deps struct {
	Runs     RunStore
	Settings SettingsStore
	Temporal WorkflowClient
	Styles   StyleDescriber
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

type Server struct {
	cfg      config.Config
	runs     RunStore
	settings SettingsStore
	temporal WorkflowClient
	styles   StyleDescriber
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		runs:     deps.Runs,
		settings: deps.Settings,
		temporal: deps.Temporal,
		styles:   deps.Styles,
		gatherer: gatherer,
		logger:   deps.Logger,
	}
}

func WorkflowID(runID int64) string {
	return "review-run-" + strconv.FormatInt(runID, 10)
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunScoped)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/style/describe", s.handleDescribeStyle)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit"))
				return
			}
			limit = n
		}
		runs, err := s.runs.List(r.Context(), limit)
		if err != nil {
			s.serverErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": summarize(runs)})
	case http.MethodPost:
		s.createRun(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderPath  string `json:"folder_path"`
		Name        string `json:"name"`
		StyleSample string `json:"style_sample"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.FolderPath = strings.TrimSpace(req.FolderPath)
	if req.FolderPath == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("folder_path is required"))
		return
	}
	run, err := s.runs.Create(r.Context(), models.ReviewRun{
		FolderPath: req.FolderPath,
		Name:       strings.TrimSpace(req.Name),
		Status:     models.RunPending,
	})
	if err != nil {
		s.serverErr(w, err)
		return
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    WorkflowID(run.ID),
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.ReviewRunWorkflow, workflows.ReviewRunInput{
		RunID:         run.ID,
		FolderPath:    run.FolderPath,
		Name:          run.Name,
		StyleSample:   req.StyleSample,
		MaxConcurrent: s.cfg.AnalyzeMaxConcurrent,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("run_id", run.ID).Msg("could not start review workflow")
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		run.Status = models.RunFailed
		run.Result = payload
		if saveErr := s.runs.Save(r.Context(), run); saveErr != nil {
			s.logger.Error().Err(saveErr).Int64("run_id", run.ID).Msg("could not record failed run")
		}
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":          run.ID,
		"name":            run.DisplayName(),
		"status":          run.Status,
		"workflow_id":     we.GetID(),
		"workflow_run_id": we.GetRunID(),
	})
}

func (s *Server) handleRunScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/"), "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if len(parts) == 1 {
		run, err := s.loadRun(r.Context(), w, id)
		if err != nil {
			return
		}
		writeJSON(w, http.StatusOK, runView(run))
		return
	}
	if len(parts) > 2 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	switch parts[1] {
	case "review":
		s.downloadReview(w, r, id)
	case "progress":
		var prog workflows.ReviewProgress
		resp, err := s.temporal.QueryWorkflow(r.Context(), WorkflowID(id), "", workflows.QueryGetProgress)
		if err != nil {
			var notFound *serviceerror.NotFound
			if errors.As(err, &notFound) {
				writeErr(w, http.StatusNotFound, err)
			} else {
				writeErr(w, http.StatusBadGateway, err)
			}
			return
		}
		if err := resp.Get(&prog); err != nil {
			s.serverErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prog)
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) downloadReview(w http.ResponseWriter, r *http.Request, id int64) {
	run, err := s.loadRun(r.Context(), w, id)
	if err != nil {
		return
	}
	if run.Status != models.RunCompleted {
		writeErr(w, http.StatusConflict, fmt.Errorf("run %d is %s", id, run.Status))
		return
	}
	var result models.ReviewResult
	if err := json.Unmarshal(run.Result, &result); err != nil {
		s.serverErr(w, fmt.Errorf("decode run %d result: %w", id, err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("literature-review-%d.md", id)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.FinalReview))
}

func (s *Server) loadRun(ctx context.Context, w http.ResponseWriter, id int64) (models.ReviewRun, error) {
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
		} else {
			s.serverErr(w, err)
		}
		return models.ReviewRun{}, err
	}
	return run, nil
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.Get(r.Context())
		if err != nil {
			s.serverErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var in models.Settings
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		saved, err := s.settings.Put(r.Context(), in)
		if err != nil {
			s.serverErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleDescribeStyle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStyleSampleBytes)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}
	desc, err := s.styles.DescribeStyle(r.Context(), req.Text)
	if err != nil {
		s.logger.Error().Err(err).Msg("describe style failed")
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"description": desc})
}

func (s *Server) serverErr(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	writeErr(w, http.StatusInternalServerError, err)
}

type runSummary struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	FolderPath string           `json:"folder_path"`
	Status     models.RunStatus `json:"status"`
	StartedAt  string           `json:"started_at"`
	FinishedAt string           `json:"finished_at,omitempty"`
}

func summarize(runs []models.ReviewRun) []runSummary {
	out := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		sum := runSummary{
			ID:         run.ID,
			Name:       run.DisplayName(),
			FolderPath: run.FolderPath,
			Status:     run.Status,
			StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		}
		if run.FinishedAt != nil {
			sum.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, sum)
	}
	return out
}

func runView(run models.ReviewRun) map[string]any {
	view := map[string]any{
		"id":          run.ID,
		"name":        run.DisplayName(),
		"folder_path": run.FolderPath,
		"status":      run.Status,
		"started_at":  run.StartedAt,
		"finished_at": run.FinishedAt,
	}
	if len(run.Result) > 0 {
		view["result"] = run.Result
	}
	return view
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

// toAPIError maps a status and cause to a user-safe message. Causes of 5xx
// errors are never echoed.
func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "LR-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusBadGateway:
		return apiError{
			Code:    "LR-API-5020",
			Message: "An error occurred while generating the literature review. Retry shortly.",
		}
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "LR-DB-5001",
				Message: "Database schema is not initialized. Restart the worker and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "LR-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "LR-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "LR-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "LR-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "LR-API-4009"
		msg = "The review is not available for this run yet."
	case status == http.StatusMethodNotAllowed:
		code = "LR-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "folder_path is required"):
			msg = "A folder path is required."
		case strings.Contains(raw, "text is required"):
			msg = "A writing sample is required."
		case strings.Contains(raw, "invalid limit"):
			msg = "Limit must be a non-negative integer."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
