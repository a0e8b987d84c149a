package storage

import (
	"context"
	"fmt"

	"litreview/internal/capability"
	"litreview/internal/models"

	"github.com/rs/zerolog"
)

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

// Stores groups the repositories a process needs. Audit is nil when calls
// are not persisted.
type Stores struct {
	Runs     RunStore
	Settings SettingsStore
	Audit    capability.AuditSink
	db       *DB
}

// Open connects to Postgres and ensures the schema when dsn is set, and
// otherwise returns in-memory stores that live as long as the process.
func Open(ctx context.Context, dsn string, defaults models.Settings, logger zerolog.Logger) (*Stores, error) {
	if dsn == "" {
		logger.Info().Msg("no postgres url configured, keeping runs in memory")
		return &Stores{
			Runs:     NewMemoryRunRepo(),
			Settings: NewMemorySettingsRepo(defaults),
		}, nil
	}
	db, err := NewDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db.Pool); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Stores{
		Runs:     NewRunRepo(db.Pool),
		Settings: NewSettingsRepo(db.Pool, defaults),
		Audit:    NewLLMAuditRepo(db.Pool),
		db:       db,
	}, nil
}

func (s *Stores) Persistent() bool {
	return s.db != nil
}

func (s *Stores) Close() {
	s.db.Close()
}
