package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"litreview/internal/models"

	"github.com/jackc/pgx/v5"
)

type RunRepo struct {
	db DBTX
}

func NewRunRepo(db DBTX) *RunRepo {
	return &RunRepo{db: db}
}

const runColumns = `id, folder_path, COALESCE(name,''), status, result, started_at, finished_at`

// Create inserts run and returns it with its assigned id.
func (r *RunRepo) Create(ctx context.Context, run models.ReviewRun) (models.ReviewRun, error) {
	if run.Status == "" {
		run.Status = models.RunPending
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	err := r.db.QueryRow(ctx, `
INSERT INTO review_runs (folder_path, name, status, started_at)
VALUES ($1, NULLIF($2,''), $3, $4)
RETURNING id`, run.FolderPath, run.Name, string(run.Status), run.StartedAt).Scan(&run.ID)
	if err != nil {
		return models.ReviewRun{}, fmt.Errorf("create review run: %w", err)
	}
	return run, nil
}

// Save updates a run that has not finished yet. Saving over a COMPLETED or
// FAILED run returns models.ErrTerminalRun.
func (r *RunRepo) Save(ctx context.Context, run models.ReviewRun) error {
	if !run.Status.Valid() {
		return fmt.Errorf("save review run %d: invalid status %q", run.ID, run.Status)
	}
	tag, err := r.db.Exec(ctx, `
UPDATE review_runs
SET name=NULLIF($2,''), status=$3, result=$4::jsonb, finished_at=$5
WHERE id=$1 AND status NOT IN ('COMPLETED','FAILED')`,
		run.ID, run.Name, string(run.Status), nullableJSON(run.Result), run.FinishedAt)
	if err != nil {
		return fmt.Errorf("save review run %d: %w", run.ID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.Get(ctx, run.ID); err != nil {
		return err
	}
	return fmt.Errorf("save review run %d: %w", run.ID, models.ErrTerminalRun)
}

func (r *RunRepo) Get(ctx context.Context, id int64) (models.ReviewRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM review_runs WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ReviewRun{}, fmt.Errorf("review run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.ReviewRun{}, fmt.Errorf("get review run %d: %w", id, err)
	}
	return run, nil
}

// List returns runs newest first. A non-positive limit returns every run.
func (r *RunRepo) List(ctx context.Context, limit int) ([]models.ReviewRun, error) {
	query := `SELECT ` + runColumns + ` FROM review_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.ReviewRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review runs: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (models.ReviewRun, error) {
	var run models.ReviewRun
	var status string
	var result []byte
	if err := row.Scan(&run.ID, &run.FolderPath, &run.Name, &status, &result, &run.StartedAt, &run.FinishedAt); err != nil {
		return models.ReviewRun{}, err
	}
	run.Status = models.RunStatus(status)
	if len(result) > 0 {
		run.Result = json.RawMessage(result)
	}
	return run, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
