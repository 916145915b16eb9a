package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/spinshelf/spinshelf/internal/loggy"
)

var (
	// ErrRecordNotFound is returned when a record is not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateDiscogsID is returned when another record already
	// references the same Discogs release
	ErrDuplicateDiscogsID = errors.New("record with this discogs id already exists")
)

// PaginationParams defines parameters for paginated queries
type PaginationParams struct {
	Page  int
	Limit int
}

// NewPaginationParams creates a new PaginationParams instance with default values
func NewPaginationParams(page, limit int) PaginationParams {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return PaginationParams{Page: page, Limit: limit}
}

// Repository defines the interface for record persistence operations
type Repository interface {
	CreateRecord(ctx context.Context, rec *Record) error
	GetRecordByID(ctx context.Context, id string) (*Record, error)
	GetRecordByDiscogsID(ctx context.Context, discogsID int64) (*Record, error)
	ListRecords(ctx context.Context, params PaginationParams) ([]*Record, error)
	ListUnsynced(ctx context.Context, limit int) ([]*Record, error)
	MarkSynced(ctx context.Context, id string) error
	CountRecords(ctx context.Context) (int, error)
}

// SQLRepository implements Repository using a SQLite database
type SQLRepository struct {
	db      *sql.DB
	logger  *loggy.Logger
	builder sq.StatementBuilderType
}

// NewSQLRepository creates a new record SQL repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) Repository {
	return &SQLRepository{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

var recordColumns = []string{
	"id",
	"discogs_id",
	"title",
	"artist",
	"year",
	"label",
	"catalog_number",
	"genres",
	"styles",
	"cover_url",
	"thumb_url",
	"size",
	"color",
	"shape",
	"synced",
	"created_at",
	"updated_at",
}

// CreateRecord saves a new record to the database
func (r *SQLRepository) CreateRecord(ctx context.Context, rec *Record) error {
	if rec.HasDiscogsID() {
		existing, err := r.GetRecordByDiscogsID(ctx, *rec.DiscogsID)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("checking for existing record: %w", err)
		}
		if existing != nil {
			return ErrDuplicateDiscogsID
		}
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	genres, err := marshalStrings(rec.Genres)
	if err != nil {
		return fmt.Errorf("marshaling genres: %w", err)
	}
	styles, err := marshalStrings(rec.Styles)
	if err != nil {
		return fmt.Errorf("marshaling styles: %w", err)
	}

	query, args, err := r.builder.
		Insert("records").
		Columns(recordColumns...).
		Values(
			rec.ID,
			rec.DiscogsID,
			rec.Title,
			rec.Artist,
			rec.Year,
			rec.Label,
			rec.CatalogNumber,
			genres,
			styles,
			rec.CoverURL,
			rec.ThumbURL,
			rec.Size,
			rec.Color,
			rec.Shape,
			rec.Synced,
			rec.CreatedAt,
			rec.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building create record query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing create record query: %w", err)
	}

	return nil
}

// GetRecordByID retrieves a record by its local identifier
func (r *SQLRepository) GetRecordByID(ctx context.Context, id string) (*Record, error) {
	query, args, err := r.builder.
		Select(recordColumns...).
		From("records").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get record query: %w", err)
	}

	return r.scanRecord(r.db.QueryRowContext(ctx, query, args...))
}

// GetRecordByDiscogsID retrieves the record referencing the given Discogs
// release. The lookup is an exact match.
func (r *SQLRepository) GetRecordByDiscogsID(ctx context.Context, discogsID int64) (*Record, error) {
	query, args, err := r.builder.
		Select(recordColumns...).
		From("records").
		Where(sq.Eq{"discogs_id": discogsID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get record by discogs id query: %w", err)
	}

	return r.scanRecord(r.db.QueryRowContext(ctx, query, args...))
}

// ListRecords retrieves records ordered by creation, newest first
func (r *SQLRepository) ListRecords(ctx context.Context, params PaginationParams) ([]*Record, error) {
	offset := (params.Page - 1) * params.Limit

	query, args, err := r.builder.
		Select(recordColumns...).
		From("records").
		OrderBy("created_at DESC").
		Limit(uint64(params.Limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list records query: %w", err)
	}

	return r.queryRecords(ctx, query, args...)
}

// ListUnsynced retrieves records that reference a Discogs release but have
// not yet been pushed to the remote collection, in stable id order.
func (r *SQLRepository) ListUnsynced(ctx context.Context, limit int) ([]*Record, error) {
	q := r.builder.
		Select(recordColumns...).
		From("records").
		Where(sq.And{
			sq.NotEq{"discogs_id": nil},
			sq.Eq{"synced": false},
		}).
		OrderBy("id ASC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list unsynced query: %w", err)
	}

	return r.queryRecords(ctx, query, args...)
}

// MarkSynced flips the synced flag for a record. The flag only ever moves
// from false to true; nothing here reverts it.
func (r *SQLRepository) MarkSynced(ctx context.Context, id string) error {
	query, args, err := r.builder.
		Update("records").
		Set("synced", true).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building mark synced query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("executing mark synced query: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking mark synced result: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// CountRecords returns the total number of records in the catalog
func (r *SQLRepository) CountRecords(ctx context.Context) (int, error) {
	query, args, err := r.builder.
		Select("COUNT(*)").
		From("records").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count records query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("executing count records query: %w", err)
	}

	return count, nil
}

func (r *SQLRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing record query: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SQLRepository) scanRecord(row *sql.Row) (*Record, error) {
	rec, err := scanRecordRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func scanRecordRow(s rowScanner) (*Record, error) {
	var rec Record
	var discogsID sql.NullInt64
	var genres, styles string

	err := s.Scan(
		&rec.ID,
		&discogsID,
		&rec.Title,
		&rec.Artist,
		&rec.Year,
		&rec.Label,
		&rec.CatalogNumber,
		&genres,
		&styles,
		&rec.CoverURL,
		&rec.ThumbURL,
		&rec.Size,
		&rec.Color,
		&rec.Shape,
		&rec.Synced,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record row: %w", err)
	}

	if discogsID.Valid {
		rec.DiscogsID = &discogsID.Int64
	}

	if err := json.Unmarshal([]byte(genres), &rec.Genres); err != nil {
		return nil, fmt.Errorf("unmarshaling genres: %w", err)
	}
	if err := json.Unmarshal([]byte(styles), &rec.Styles); err != nil {
		return nil, fmt.Errorf("unmarshaling styles: %w", err)
	}

	return &rec, nil
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
