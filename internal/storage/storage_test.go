package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"litreview/internal/capability"
	"litreview/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runCols = []string{"id", "folder_path", "name", "status", "result", "started_at", "finished_at"}

func TestRunRepoCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO review_runs").
		WithArgs("/papers", "", "RUNNING", started).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	run, err := NewRunRepo(mock).Create(context.Background(), models.ReviewRun{
		FolderPath: "/papers", Status: models.RunRunning, StartedAt: started,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), run.ID)
	assert.Equal(t, "Literature review n°7", run.DisplayName())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepoSaveUpdatesOpenRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	done := time.Now().UTC()
	mock.ExpectExec("UPDATE review_runs").
		WithArgs(int64(3), "mine", "COMPLETED", `{"status":"COMPLETED"}`, &done).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewRunRepo(mock).Save(context.Background(), models.ReviewRun{
		ID: 3, Name: "mine", Status: models.RunCompleted,
		Result: json.RawMessage(`{"status":"COMPLETED"}`), FinishedAt: &done,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepoSaveRejectsTerminalRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Now().UTC()
	mock.ExpectExec("UPDATE review_runs").
		WithArgs(int64(3), "", "RUNNING", nil, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT .* FROM review_runs WHERE id=\\$1").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(runCols).
			AddRow(int64(3), "/papers", "", "FAILED", []byte(`{"error":"x"}`), started, &started))

	err = NewRunRepo(mock).Save(context.Background(), models.ReviewRun{ID: 3, Status: models.RunRunning})
	require.ErrorIs(t, err, models.ErrTerminalRun)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepoSaveUnknownRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE review_runs").
		WithArgs(int64(9), "", "FAILED", nil, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT .* FROM review_runs WHERE id=\\$1").
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	err = NewRunRepo(mock).Save(context.Background(), models.ReviewRun{ID: 9, Status: models.RunFailed})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRunRepoSaveInvalidStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	err = NewRunRepo(mock).Save(context.Background(), models.ReviewRun{ID: 1, Status: "DONE"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepoList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .* FROM review_runs ORDER BY started_at DESC").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(runCols).
			AddRow(int64(2), "/b", "second", "RUNNING", []byte(nil), now, (*time.Time)(nil)).
			AddRow(int64(1), "/a", "", "COMPLETED", []byte(`{"final_review":"ok"}`), now.Add(-time.Hour), &now))

	runs, err := NewRunRepo(mock).List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(2), runs[0].ID)
	assert.Equal(t, models.RunRunning, runs[0].Status)
	assert.Nil(t, runs[0].Result)
	assert.Nil(t, runs[0].FinishedAt)
	assert.JSONEq(t, `{"final_review":"ok"}`, string(runs[1].Result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepoFallsBackToDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM app_settings").WillReturnError(pgx.ErrNoRows)
	s, err := NewSettingsRepo(mock, models.DefaultSettings()).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), s)
}

func TestSettingsRepoGetAndPut(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM app_settings").
		WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g"}).
			AddRow(100, 200, 300, 0, 900, 800, "terse"))
	mock.ExpectExec("INSERT INTO app_settings").
		WithArgs(1, 2, 3, 5000, 1500, 1500, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewSettingsRepo(mock, models.DefaultSettings())
	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, s.ResearchQuestionChars)
	assert.Equal(t, 5000, s.GapsChars)
	assert.Equal(t, "terse", s.WritingStyleText)

	saved, err := repo.Put(context.Background(), models.Settings{ResearchQuestionChars: 1, MethodologyChars: 2, FindingsChars: 3})
	require.NoError(t, err)
	assert.Equal(t, 1500, saved.ComposeMaxTokens)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLLMAuditRepoRecordCall(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO llm_calls").
		WithArgs("3f1e0c4e-8f4a-4d1e-9c61-8f2d5c3b7a10", int64(4), "gaps", "abc", "mock", "mock-llm-v1", "ok", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	var sink capability.AuditSink = NewLLMAuditRepo(mock)
	err = sink.RecordCall(context.Background(), capability.CallRecord{
		CallID: "3f1e0c4e-8f4a-4d1e-9c61-8f2d5c3b7a10", RunID: 4, Operation: "gaps", PaperID: "abc",
		Provider: "mock", Model: "mock-llm-v1", Status: "ok",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLLMAuditRepoWrapsErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO llm_calls").WillReturnError(errors.New("conn reset"))
	err = NewLLMAuditRepo(mock).RecordCall(context.Background(), capability.CallRecord{CallID: "x"})
	require.ErrorContains(t, err, "insert llm call")
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRunRepoLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRunRepo()
	first, err := repo.Create(ctx, models.ReviewRun{FolderPath: "/a", StartedAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	second, err := repo.Create(ctx, models.ReviewRun{FolderPath: "/b"})
	require.NoError(t, err)
	assert.Equal(t, models.RunPending, first.Status)

	first.Status = models.RunCompleted
	require.NoError(t, repo.Save(ctx, first))
	first.Status = models.RunRunning
	require.ErrorIs(t, repo.Save(ctx, first), models.ErrTerminalRun)

	_, err = repo.Get(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)

	runs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
}

func TestOpenWithoutDSNUsesMemory(t *testing.T) {
	stores, err := Open(context.Background(), "", models.Settings{GapsChars: 10}, zerolog.Nop())
	require.NoError(t, err)
	defer stores.Close()
	assert.False(t, stores.Persistent())
	assert.Nil(t, stores.Audit)

	s, err := stores.Settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, s.GapsChars)
	_, err = stores.Runs.Create(context.Background(), models.ReviewRun{FolderPath: "/x"})
	require.NoError(t, err)
}
