package temporal

import (
	"context"
	"time"
)

// Scheduler manages the Temporal schedule that drives the cooldown sweep.
// The schedule triggers SweepDueTransactionsWorkflow on a fixed interval so
// transactions whose cooldown elapsed get auto-executed without anyone
// pressing the button.
type Scheduler interface {
	// EnsureSweepSchedule creates the sweep schedule, or updates its
	// interval if it already exists.
	EnsureSweepSchedule(ctx context.Context, interval time.Duration) error

	// DeleteSweepSchedule removes the sweep schedule.
	DeleteSweepSchedule(ctx context.Context) error
}

// sweepScheduleID is the Temporal schedule ID for the cooldown sweep.
const sweepScheduleID = "adminq-sweep-due-transactions"
