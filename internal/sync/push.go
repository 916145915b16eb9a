package sync

import (
	"context"
	"fmt"

	"github.com/spinshelf/spinshelf/internal/record"
)

// push adds every unsynced cataloged record to the remote collection. The
// phase is silently skipped when no credentials are configured; the local
// catalog remains usable without a Discogs account.
func (s *Service) push(ctx context.Context, progress *Progress, report func()) error {
	progress.Phase = PhasePush

	if !s.cfg.HasCredentials() {
		s.logger.Debug("Skipping push phase, no credentials configured")
		return nil
	}

	unsynced, err := s.records.ListUnsynced(ctx, 0)
	if err != nil {
		return fmt.Errorf("listing unsynced records: %w", err)
	}

	for _, rec := range unsynced {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.pushItem(ctx, rec, progress); err != nil {
			s.logger.Warn("Failed to push record",
				"record_id", rec.ID,
				"title", rec.Title,
				"error", err,
			)
			progress.Errors = append(progress.Errors,
				fmt.Sprintf("record %s (%s): %v", rec.ID, rec.Title, err))
		}
		report()
	}

	return nil
}

// pushItem adds one record's release to the remote collection and marks it
// synced. A conflict response means the release is already there, which is
// the state we wanted; it counts as a successful push.
func (s *Service) pushItem(ctx context.Context, rec *record.Record, progress *Progress) error {
	result, err := s.client.AddToCollection(ctx, *rec.DiscogsID)
	if err != nil {
		return fmt.Errorf("adding to collection: %w", err)
	}

	if err := s.records.MarkSynced(ctx, rec.ID); err != nil {
		return fmt.Errorf("marking record synced: %w", err)
	}

	s.logger.Debug("Pushed record",
		"record_id", rec.ID,
		"release_id", result.ReleaseID,
		"status", result.Status,
	)
	progress.Pushed++

	return nil
}
