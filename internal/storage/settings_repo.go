package storage

import (
	"context"
	"errors"
	"fmt"

	"litreview/internal/models"

	"github.com/jackc/pgx/v5"
)

// SettingsRepo stores the single settings row (id 1).
type SettingsRepo struct {
	db       DBTX
	defaults models.Settings
}

func NewSettingsRepo(db DBTX, defaults models.Settings) *SettingsRepo {
	return &SettingsRepo{db: db, defaults: defaults}
}

// Get returns the stored settings, or the defaults when none were saved.
func (r *SettingsRepo) Get(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	err := r.db.QueryRow(ctx, `
SELECT research_question_chars, methodology_chars, findings_chars, gaps_chars,
       compose_max_tokens, edit_max_tokens, COALESCE(writing_style_text,'')
FROM app_settings WHERE id=1`).Scan(
		&s.ResearchQuestionChars, &s.MethodologyChars, &s.FindingsChars, &s.GapsChars,
		&s.ComposeMaxTokens, &s.EditMaxTokens, &s.WritingStyleText)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.defaults, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s.Normalize(), nil
}

func (r *SettingsRepo) Put(ctx context.Context, s models.Settings) (models.Settings, error) {
	s = s.Normalize()
	_, err := r.db.Exec(ctx, `
INSERT INTO app_settings (id, research_question_chars, methodology_chars, findings_chars, gaps_chars,
                          compose_max_tokens, edit_max_tokens, writing_style_text)
VALUES (1, $1, $2, $3, $4, $5, $6, NULLIF($7,''))
ON CONFLICT (id)
DO UPDATE SET
  research_question_chars = EXCLUDED.research_question_chars,
  methodology_chars = EXCLUDED.methodology_chars,
  findings_chars = EXCLUDED.findings_chars,
  gaps_chars = EXCLUDED.gaps_chars,
  compose_max_tokens = EXCLUDED.compose_max_tokens,
  edit_max_tokens = EXCLUDED.edit_max_tokens,
  writing_style_text = EXCLUDED.writing_style_text,
  updated_at = NOW()`,
		s.ResearchQuestionChars, s.MethodologyChars, s.FindingsChars, s.GapsChars,
		s.ComposeMaxTokens, s.EditMaxTokens, s.WritingStyleText)
	if err != nil {
		return models.Settings{}, fmt.Errorf("put settings: %w", err)
	}
	return s, nil
}
