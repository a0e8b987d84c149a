package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"litreview/internal/models"
)

// MemoryRunRepo keeps runs in process. The CLI uses it when no Postgres URL
// is configured.
type MemoryRunRepo struct {
	mu   sync.Mutex
	next int64
	runs map[int64]models.ReviewRun
}

func NewMemoryRunRepo() *MemoryRunRepo {
	return &MemoryRunRepo{runs: map[int64]models.ReviewRun{}}
}

func (m *MemoryRunRepo) Create(_ context.Context, run models.ReviewRun) (models.ReviewRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	run.ID = m.next
	if run.Status == "" {
		run.Status = models.RunPending
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *MemoryRunRepo) Save(_ context.Context, run models.ReviewRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.runs[run.ID]
	if !ok {
		return fmt.Errorf("review run %d: %w", run.ID, ErrNotFound)
	}
	if cur.Status.IsTerminal() {
		return fmt.Errorf("save review run %d: %w", run.ID, models.ErrTerminalRun)
	}
	run.StartedAt = cur.StartedAt
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryRunRepo) Get(_ context.Context, id int64) (models.ReviewRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return models.ReviewRun{}, fmt.Errorf("review run %d: %w", id, ErrNotFound)
	}
	return run, nil
}

func (m *MemoryRunRepo) List(_ context.Context, limit int) ([]models.ReviewRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ReviewRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type MemorySettingsRepo struct {
	mu       sync.Mutex
	settings models.Settings
}

func NewMemorySettingsRepo(defaults models.Settings) *MemorySettingsRepo {
	return &MemorySettingsRepo{settings: defaults}
}

func (m *MemorySettingsRepo) Get(context.Context) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *MemorySettingsRepo) Put(_ context.Context, s models.Settings) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s.Normalize()
	return m.settings, nil
}
