package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinshelf/spinshelf/internal/loggy"
)

func newTestRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{
		db:      db,
		logger:  loggy.NewNoopLogger(),
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func sampleRun() *Run {
	started := time.Now().Add(-time.Minute)
	return &Run{
		ID:          "run-01HTESTSYNCRUN000000000001",
		Pulled:      4,
		Pushed:      2,
		Skipped:     7,
		ErrorCount:  0,
		Success:     true,
		StartedAt:   started,
		CompletedAt: started.Add(30 * time.Second),
	}
}

func runRows(run *Run) *sqlmock.Rows {
	return sqlmock.NewRows(runColumns).AddRow(
		run.ID,
		run.Pulled,
		run.Pushed,
		run.Skipped,
		run.ErrorCount,
		run.Success,
		run.StartedAt,
		run.CompletedAt,
	)
}

func TestCreateRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	defer db.Close()

	repo := newTestRepository(db)
	run := sampleRun()

	mock.ExpectExec("INSERT INTO sync_runs").
		WithArgs(
			run.ID,
			run.Pulled,
			run.Pushed,
			run.Skipped,
			run.ErrorCount,
			run.Success,
			run.StartedAt,
			run.CompletedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.CreateRun(context.Background(), run)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newTestRepository(db)
	run := sampleRun()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM sync_runs ORDER BY completed_at DESC LIMIT 1").
			WillReturnRows(runRows(run))

		got, err := repo.GetLatestRun(context.Background())
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, run.Pulled, got.Pulled)
		assert.True(t, got.Success)
	})

	t.Run("no runs yet", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM sync_runs ORDER BY completed_at DESC LIMIT 1").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetLatestRun(context.Background())
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newTestRepository(db)
	run := sampleRun()

	mock.ExpectQuery("SELECT .+ FROM sync_runs ORDER BY completed_at DESC LIMIT 10").
		WillReturnRows(runRows(run))

	got, err := repo.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, run.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
