package temporal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gsdc-platform/adminq/service/metrics"
	"github.com/gsdc-platform/adminq/service/queue"
)

// SweepInput is the (currently empty) input of the sweep workflow. Kept as
// a struct so fields can be added without breaking scheduled invocations.
type SweepInput struct{}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Due       int       `json:"due"`
	Executed  int       `json:"executed"`
	Skipped   int       `json:"skipped"`
	Failed    []int64   `json:"failed,omitempty"`
	SweepTime time.Time `json:"sweep_time"`
}

// ListDueTransactionsResult contains the result of the ListDueTransactions
// activity.
type ListDueTransactionsResult struct {
	IDs []int64 `json:"ids"`
}

// ExecuteTransactionInput contains parameters for the ExecuteTransaction
// activity.
type ExecuteTransactionInput struct {
	ID int64 `json:"id"`
}

// ExecuteTransactionResult contains the result of the ExecuteTransaction
// activity. Skipped means the transaction was no longer eligible when the
// activity ran (already terminal, or rejected between list and execute).
type ExecuteTransactionResult struct {
	ID       int64 `json:"id"`
	Executed bool  `json:"executed"`
	Skipped  bool  `json:"skipped"`
}

// QueueService defines the queue operations needed by activities.
// This allows for easy mocking in tests.
type QueueService interface {
	ListDueIDs(ctx context.Context) ([]int64, error)
	Execute(ctx context.Context, id int64) (*queue.PendingTransaction, error)
}

// Activities holds the dependencies needed by Temporal activities.
// Following go-kit pattern, all dependencies are explicit.
type Activities struct {
	svc     QueueService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(svc QueueService, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		svc:     svc,
		metrics: m,
		logger:  logger,
	}
}

// ListDueTransactions returns the ids of PENDING transactions whose
// cooldown has elapsed.
func (a *Activities) ListDueTransactions(ctx context.Context) (*ListDueTransactionsResult, error) {
	ids, err := a.svc.ListDueIDs(ctx)
	if err != nil {
		a.logger.Error("failed to list due transactions", "error", err)
		return nil, err
	}

	a.logger.Debug("listed due transactions", "count", len(ids))
	return &ListDueTransactionsResult{IDs: ids}, nil
}

// ExecuteTransaction auto-executes one due transaction. A transaction that
// reached a terminal state between listing and execution is reported as
// skipped, not failed; dispatch failures are returned as errors so
// Temporal's retry policy applies.
func (a *Activities) ExecuteTransaction(ctx context.Context, input ExecuteTransactionInput) (*ExecuteTransactionResult, error) {
	start := time.Now()

	txn, err := a.svc.Execute(ctx, input.ID)
	if err != nil {
		if errors.Is(err, queue.ErrNotPending) || errors.Is(err, queue.ErrNotFound) || errors.Is(err, queue.ErrCooldownActive) {
			a.logger.Debug("transaction no longer eligible for sweep",
				"tx_id", input.ID,
				"error", err,
			)
			a.recordSweep("skipped", start)
			return &ExecuteTransactionResult{ID: input.ID, Skipped: true}, nil
		}
		a.logger.Error("sweep execution failed",
			"tx_id", input.ID,
			"error", err,
		)
		a.recordSweep("failed", start)
		return nil, err
	}

	a.logger.Info("sweep executed transaction",
		"tx_id", txn.ID,
		"tx_type", txn.TxType,
	)
	a.recordSweep("executed", start)
	return &ExecuteTransactionResult{ID: input.ID, Executed: true}, nil
}

func (a *Activities) recordSweep(status string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordSweep(status, time.Since(start).Seconds())
	}
}
