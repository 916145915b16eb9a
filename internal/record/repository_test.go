package record

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

func sampleRecord() *Record {
	discogsID := int64(249504)
	return &Record{
		ID:            "rec-01HTESTRECORD0000000000001",
		DiscogsID:     &discogsID,
		Title:         "Unknown Pleasures",
		Artist:        "Joy Division",
		Year:          1979,
		Label:         "Factory",
		CatalogNumber: "FACT 10",
		Genres:        []string{"Rock"},
		Styles:        []string{"Post-Punk"},
		CoverURL:      "https://img.discogs.com/cover.jpg",
		ThumbURL:      "https://img.discogs.com/thumb.jpg",
		Size:          `12"`,
		Color:         "Black",
		Shape:         "Round",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func recordRows(rec *Record) *sqlmock.Rows {
	return sqlmock.NewRows(recordColumns).AddRow(
		rec.ID,
		*rec.DiscogsID,
		rec.Title,
		rec.Artist,
		rec.Year,
		rec.Label,
		rec.CatalogNumber,
		`["Rock"]`,
		`["Post-Punk"]`,
		rec.CoverURL,
		rec.ThumbURL,
		rec.Size,
		rec.Color,
		rec.Shape,
		rec.Synced,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
}

func TestCreateRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock database")
	defer db.Close()

	repo := newTestRepository(db)
	rec := sampleRecord()

	t.Run("inserts when discogs id is unused", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM records WHERE discogs_id = ?").
			WithArgs(*rec.DiscogsID).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectExec("INSERT INTO records").
			WithArgs(
				rec.ID,
				*rec.DiscogsID,
				rec.Title,
				rec.Artist,
				rec.Year,
				rec.Label,
				rec.CatalogNumber,
				`["Rock"]`,
				`["Post-Punk"]`,
				rec.CoverURL,
				rec.ThumbURL,
				rec.Size,
				rec.Color,
				rec.Shape,
				rec.Synced,
				sqlmock.AnyArg(),
				sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.CreateRecord(context.Background(), rec)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects duplicate discogs id", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM records WHERE discogs_id = ?").
			WithArgs(*rec.DiscogsID).
			WillReturnRows(recordRows(rec))

		err := repo.CreateRecord(context.Background(), rec)
		assert.ErrorIs(t, err, ErrDuplicateDiscogsID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetRecordByDiscogsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newTestRepository(db)
	rec := sampleRecord()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM records WHERE discogs_id = ?").
			WithArgs(*rec.DiscogsID).
			WillReturnRows(recordRows(rec))

		got, err := repo.GetRecordByDiscogsID(context.Background(), *rec.DiscogsID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Title, got.Title)
		require.NotNil(t, got.DiscogsID)
		assert.Equal(t, *rec.DiscogsID, *got.DiscogsID)
		assert.Equal(t, []string{"Rock"}, got.Genres)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM records WHERE discogs_id = ?").
			WithArgs(int64(999)).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetRecordByDiscogsID(context.Background(), 999)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnsynced(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newTestRepository(db)
	rec := sampleRecord()

	mock.ExpectQuery("SELECT .+ FROM records WHERE \\(discogs_id IS NOT NULL AND synced = \\?\\) ORDER BY id ASC").
		WithArgs(false).
		WillReturnRows(recordRows(rec))

	got, err := repo.ListUnsynced(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.False(t, got[0].Synced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSynced(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newTestRepository(db)

	t.Run("updates flag", func(t *testing.T) {
		mock.ExpectExec("UPDATE records SET synced = \\?, updated_at = \\? WHERE id = \\?").
			WithArgs(true, sqlmock.AnyArg(), "rec-abc").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkSynced(context.Background(), "rec-abc")
		assert.NoError(t, err)
	})

	t.Run("missing record", func(t *testing.T) {
		mock.ExpectExec("UPDATE records SET synced = \\?, updated_at = \\? WHERE id = \\?").
			WithArgs(true, sqlmock.AnyArg(), "rec-missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkSynced(context.Background(), "rec-missing")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := newTestRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM records").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
