package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/spinshelf/spinshelf/internal/loggy"
)

// ErrRunNotFound is returned when no sync run matches the query
var ErrRunNotFound = errors.New("sync run not found")

// Repository defines the interface for sync run bookkeeping
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetLatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
}

// SQLRepository implements Repository using a SQLite database
type SQLRepository struct {
	db      *sql.DB
	logger  *loggy.Logger
	builder sq.StatementBuilderType
}

// NewSQLRepository creates a new sync run SQL repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) Repository {
	return &SQLRepository{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

var runColumns = []string{
	"id",
	"pulled",
	"pushed",
	"skipped",
	"error_count",
	"success",
	"started_at",
	"completed_at",
}

// CreateRun persists a completed sync run
func (r *SQLRepository) CreateRun(ctx context.Context, run *Run) error {
	query, args, err := r.builder.
		Insert("sync_runs").
		Columns(runColumns...).
		Values(
			run.ID,
			run.Pulled,
			run.Pushed,
			run.Skipped,
			run.ErrorCount,
			run.Success,
			run.StartedAt,
			run.CompletedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building create run query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing create run query: %w", err)
	}

	return nil
}

// GetLatestRun returns the most recently completed run
func (r *SQLRepository) GetLatestRun(ctx context.Context) (*Run, error) {
	query, args, err := r.builder.
		Select(runColumns...).
		From("sync_runs").
		OrderBy("completed_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building latest run query: %w", err)
	}

	run, err := scanRun(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	return run, nil
}

// ListRuns returns completed runs, newest first
func (r *SQLRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	q := r.builder.
		Select(runColumns...).
		From("sync_runs").
		OrderBy("completed_at DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list runs query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list runs query: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*Run, error) {
	var run Run

	err := s.Scan(
		&run.ID,
		&run.Pulled,
		&run.Pushed,
		&run.Skipped,
		&run.ErrorCount,
		&run.Success,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run row: %w", err)
	}

	return &run, nil
}
