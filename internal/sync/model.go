// Package sync reconciles the local record catalog with the remote
// Discogs collection in two phases: pull (remote releases missing
// locally are imported) and push (local records missing remotely are
// added to the collection).
package sync

import (
	"time"

	"github.com/spinshelf/spinshelf/internal/ulid"
)

// Phase identifies which stage of a sync run a progress event belongs to
type Phase string

const (
	// PhaseStart is the accumulator's initial state; it is never emitted
	PhaseStart Phase = "start"
	// PhasePull covers importing remote collection items into the catalog
	PhasePull Phase = "pull"
	// PhasePush covers adding local records to the remote collection
	PhasePush Phase = "push"
	// PhaseDone is the terminal event carrying the final tallies. Exactly
	// one done event closes every run, successful or not.
	PhaseDone Phase = "done"
)

// Progress is a snapshot of the run's accumulator. The same counters grow
// across both phases; each event carries the totals so far, not deltas.
type Progress struct {
	Phase            Phase    `json:"phase"`
	Pulled           int      `json:"pulled"`
	Pushed           int      `json:"pushed"`
	Skipped          int      `json:"skipped"`
	Errors           []string `json:"errors,omitempty"`
	TotalRemoteItems int      `json:"total_remote_items,omitempty"`
}

// ErrorCount returns the number of per-item errors accumulated so far
func (p *Progress) ErrorCount() int {
	return len(p.Errors)
}

// Succeeded reports whether the run finished without any errors
func (p *Progress) Succeeded() bool {
	return len(p.Errors) == 0
}

// ProgressFunc receives a snapshot after every unit of work. A nil
// ProgressFunc is valid and disables reporting. Callbacks are invoked
// sequentially from the sync goroutine; implementations must not block
// for long.
type ProgressFunc func(Progress)

// Run is the persisted bookkeeping row of one sync execution
type Run struct {
	ID          string
	Pulled      int
	Pushed      int
	Skipped     int
	ErrorCount  int
	Success     bool
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewRun creates a Run stamped with a fresh ID and start time
func NewRun() *Run {
	return &Run{
		ID:        ulid.RunID(),
		StartedAt: time.Now(),
	}
}

// Complete fills the run's outcome fields from the final progress snapshot
func (r *Run) Complete(p Progress) {
	r.Pulled = p.Pulled
	r.Pushed = p.Pushed
	r.Skipped = p.Skipped
	r.ErrorCount = len(p.Errors)
	r.Success = len(p.Errors) == 0
	r.CompletedAt = time.Now()
}
