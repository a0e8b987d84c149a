package storage

import (
	"context"
	"fmt"

	"litreview/internal/capability"
)

// LLMAuditRepo records every text transform call in llm_calls.
type LLMAuditRepo struct {
	db DBTX
}

func NewLLMAuditRepo(db DBTX) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) RecordCall(ctx context.Context, rec capability.CallRecord) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO llm_calls(call_id, run_id, operation, paper_id, provider_name, model, status, error_type)
VALUES ($1::uuid, NULLIF($2, 0), $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7, NULLIF($8,''))`,
		rec.CallID, rec.RunID, rec.Operation, rec.PaperID, rec.Provider, rec.Model, rec.Status, rec.ErrorType)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// CountByStatus summarizes the calls of one run.
func (r *LLMAuditRepo) CountByStatus(ctx context.Context, runID int64) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM llm_calls WHERE run_id=$1 GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("count llm calls: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan llm call count: %w", err)
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate llm call counts: %w", err)
	}
	return out, nil
}
