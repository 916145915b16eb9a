// Package record provides the local vinyl catalog: the Record model and
// its SQLite-backed repository.
package record

import (
	"time"

	"github.com/spinshelf/spinshelf/internal/ulid"
)

// Record represents a single entry in the local catalog. A record may
// reference a Discogs release; once set, that reference is unique across
// the catalog.
type Record struct {
	ID            string     `json:"id"`
	DiscogsID     *int64     `json:"discogs_id,omitempty"`
	Title         string     `json:"title"`
	Artist        string     `json:"artist,omitempty"`
	Year          int        `json:"year,omitempty"`
	Label         string     `json:"label,omitempty"`
	CatalogNumber string     `json:"catalog_number,omitempty"`
	Genres        []string   `json:"genres,omitempty"`
	Styles        []string   `json:"styles,omitempty"`
	CoverURL      string     `json:"cover_url,omitempty"`
	ThumbURL      string     `json:"thumb_url,omitempty"`
	Size          string     `json:"size,omitempty"`
	Color         string     `json:"color,omitempty"`
	Shape         string     `json:"shape,omitempty"`
	Synced        bool       `json:"synced"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// New creates a Record with a fresh ID and timestamps
func New(title string) *Record {
	now := time.Now()
	return &Record{
		ID:        ulid.RecordID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasDiscogsID reports whether the record references a remote release
func (r *Record) HasDiscogsID() bool {
	return r.DiscogsID != nil && *r.DiscogsID > 0
}
