package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/spinshelf/spinshelf/internal/discogs"
	"github.com/spinshelf/spinshelf/internal/record"
	"github.com/spinshelf/spinshelf/internal/ulid"
)

// pull pages through the remote collection and imports every release the
// catalog does not already hold. Per-item failures are tolerated; a failed
// page listing aborts the phase.
func (s *Service) pull(ctx context.Context, progress *Progress, report func()) error {
	progress.Phase = PhasePull

	if !s.cfg.HasCredentials() {
		return ErrMissingCredentials
	}

	page := 1
	for {
		resp, err := s.client.ListCollection(ctx, page)
		if err != nil {
			return fmt.Errorf("listing collection page %d: %w", page, err)
		}

		if page == 1 {
			progress.TotalRemoteItems = resp.Pagination.Items
		}

		for i := range resp.Releases {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := &resp.Releases[i]
			if err := s.pullItem(ctx, item, progress); err != nil {
				s.logger.Warn("Failed to import release",
					"release_id", item.BasicInfo.ID,
					"title", item.BasicInfo.Title,
					"error", err,
				)
				progress.Errors = append(progress.Errors,
					fmt.Sprintf("release %d (%s): %v", item.BasicInfo.ID, item.BasicInfo.Title, err))
			}
			report()
		}

		if resp.Pagination.Pages == 0 || page >= resp.Pagination.Pages {
			break
		}
		page++
	}

	return nil
}

// pullItem imports one collection item, counting it as skipped when the
// catalog already references its release
func (s *Service) pullItem(ctx context.Context, item *discogs.CollectionItem, progress *Progress) error {
	existing, err := s.records.GetRecordByDiscogsID(ctx, item.BasicInfo.ID)
	if err != nil && !errors.Is(err, record.ErrRecordNotFound) {
		return fmt.Errorf("checking catalog: %w", err)
	}
	if existing != nil {
		progress.Skipped++
		return nil
	}

	// Listings occasionally omit format descriptors; resolve the full
	// release detail before deriving the physical attributes
	rel := &item.BasicInfo
	if len(rel.Formats) == 0 {
		full, err := s.client.GetRelease(ctx, rel.ID)
		if err != nil {
			return fmt.Errorf("fetching release detail: %w", err)
		}
		rel = full
	}

	rec := mapRelease(rel)
	if err := s.records.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, record.ErrDuplicateDiscogsID) {
			progress.Skipped++
			return nil
		}
		return fmt.Errorf("creating record: %w", err)
	}

	progress.Pulled++
	return nil
}

// mapRelease converts remote release metadata into a catalog record. A
// pulled record already exists in the remote collection, so it is born
// synced.
func mapRelease(rel *discogs.Release) *record.Record {
	size, color, shape := discogs.PhysicalAttributes(rel.Formats)
	label, catNo := rel.PrimaryLabel()

	id := rel.ID
	return &record.Record{
		ID:            ulid.RecordID(),
		DiscogsID:     &id,
		Title:         rel.Title,
		Artist:        rel.PrimaryArtist(),
		Year:          rel.Year,
		Label:         label,
		CatalogNumber: catNo,
		Genres:        rel.Genres,
		Styles:        rel.Styles,
		CoverURL:      rel.CoverImage,
		ThumbURL:      rel.Thumb,
		Size:          size,
		Color:         color,
		Shape:         shape,
		Synced:        true,
	}
}
