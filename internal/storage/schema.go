package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS review_runs (
  id BIGSERIAL PRIMARY KEY,
  folder_path TEXT NOT NULL,
  name TEXT,
  status TEXT NOT NULL CHECK (status IN ('PENDING','RUNNING','COMPLETED','FAILED')),
  result JSONB,
  started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  finished_at TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS app_settings (
  id SMALLINT PRIMARY KEY CHECK (id = 1),
  research_question_chars INT NOT NULL,
  methodology_chars INT NOT NULL,
  findings_chars INT NOT NULL,
  gaps_chars INT NOT NULL,
  compose_max_tokens INT NOT NULL,
  edit_max_tokens INT NOT NULL,
  writing_style_text TEXT,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id UUID PRIMARY KEY,
  run_id BIGINT,
  operation TEXT NOT NULL,
  paper_id TEXT,
  provider_name TEXT,
  model TEXT,
  status TEXT NOT NULL,
  error_type TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS llm_calls_run_idx ON llm_calls (run_id)`,
}

// EnsureSchema creates the tables the repositories use when they are missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
