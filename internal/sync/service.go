package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spinshelf/spinshelf/internal/config"
	"github.com/spinshelf/spinshelf/internal/discogs"
	"github.com/spinshelf/spinshelf/internal/loggy"
	"github.com/spinshelf/spinshelf/internal/record"
)

var (
	// ErrSyncInProgress is returned when a run is requested while another
	// one is still executing. Runs are serialized, never interleaved.
	ErrSyncInProgress = errors.New("a sync run is already in progress")

	// ErrMissingCredentials is returned when a phase requires Discogs
	// credentials that are not configured
	ErrMissingCredentials = errors.New("discogs credentials not configured")
)

// CollectionClient is the slice of the Discogs client the engine needs
type CollectionClient interface {
	ListCollection(ctx context.Context, page int) (*discogs.CollectionResponse, error)
	GetRelease(ctx context.Context, releaseID int64) (*discogs.Release, error)
	AddToCollection(ctx context.Context, releaseID int64) (*discogs.AddResult, error)
}

// Service orchestrates sync runs against the remote collection
type Service struct {
	cfg     config.DiscogsConfig
	client  CollectionClient
	records record.Repository
	runs    Repository
	logger  *loggy.Logger
	running atomic.Bool
}

// NewService creates a new sync service
func NewService(
	cfg config.DiscogsConfig,
	client CollectionClient,
	records record.Repository,
	runs Repository,
	logger *loggy.Logger,
) *Service {
	return &Service{
		cfg:     cfg,
		client:  client,
		records: records,
		runs:    runs,
		logger:  logger,
	}
}

// InProgress reports whether a run is currently executing
func (s *Service) InProgress() bool {
	return s.running.Load()
}

// Run executes one full sync: pull, then push, over a single shared
// accumulator. Progress snapshots are delivered through emit after every
// processed item and once more as the terminal done event, which is
// emitted exactly once per run no matter how the run ends.
//
// A phase failure (missing credentials, an exhausted listing request) is
// recorded in the accumulator's Errors and does not prevent the other
// phase from running. The returned error is non-nil only when the run
// could not execute at all (ErrSyncInProgress) or aborted on a panic.
func (s *Service) Run(ctx context.Context, emit ProgressFunc) (result *Progress, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	progress := &Progress{Phase: PhaseStart}
	run := NewRun()

	report := func() {
		if emit != nil {
			emit(*progress)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Sync run panicked", "run_id", run.ID, "panic", r)
			progress.Errors = append(progress.Errors, fmt.Sprintf("sync aborted: %v", r))
			err = fmt.Errorf("sync run aborted: %v", r)
		}

		progress.Phase = PhaseDone
		report()

		run.Complete(*progress)
		s.saveRun(run)
		result = progress
	}()

	s.logger.Info("Starting sync run", "run_id", run.ID)

	if pullErr := s.pull(ctx, progress, report); pullErr != nil {
		s.logger.Warn("Pull phase failed", "run_id", run.ID, "error", pullErr)
		progress.Errors = append(progress.Errors, fmt.Sprintf("pull phase: %v", pullErr))
	}

	if pushErr := s.push(ctx, progress, report); pushErr != nil {
		s.logger.Warn("Push phase failed", "run_id", run.ID, "error", pushErr)
		progress.Errors = append(progress.Errors, fmt.Sprintf("push phase: %v", pushErr))
	}

	s.logger.Info("Sync run finished",
		"run_id", run.ID,
		"pulled", progress.Pulled,
		"pushed", progress.Pushed,
		"skipped", progress.Skipped,
		"errors", len(progress.Errors),
	)

	return progress, nil
}

// saveRun persists the run's bookkeeping row. Persistence is best-effort;
// a failure here never fails the run itself.
func (s *Service) saveRun(run *Run) {
	if s.runs == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.logger.Warn("Failed to persist sync run", "run_id", run.ID, "error", err)
	}
}
