package temporal

import (
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// SweepDueTransactionsWorkflow auto-executes every PENDING transaction
// whose cooldown has elapsed. It is triggered by a Temporal schedule at
// SWEEP_INTERVAL.
//
// The workflow performs these steps:
// 1. List the ids of due transactions (ListDueTransactions activity)
// 2. Execute each one (ExecuteTransaction activity)
//
// Per-id failures do not abort the sweep: a dispatch failure on one
// transaction (say, a burn with no allowance yet) must not block the
// others, and the failed id stays PENDING for the next sweep.
func SweepDueTransactionsWorkflow(ctx workflow.Context, input SweepInput) (*SweepResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("SweepDueTransactionsWorkflow started")

	result := &SweepResult{
		SweepTime: workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var due *ListDueTransactionsResult
	if err := workflow.ExecuteActivity(ctx, a.ListDueTransactions).Get(ctx, &due); err != nil {
		logger.Error("failed to list due transactions", "error", err)
		return result, err
	}

	result.Due = len(due.IDs)
	if len(due.IDs) == 0 {
		logger.Debug("no due transactions")
		return result, nil
	}

	logger.Info("executing due transactions", "count", len(due.IDs))

	for _, id := range due.IDs {
		var execResult *ExecuteTransactionResult
		err := workflow.ExecuteActivity(ctx, a.ExecuteTransaction, ExecuteTransactionInput{ID: id}).Get(ctx, &execResult)
		if err != nil {
			logger.Warn("sweep execution failed, leaving transaction pending",
				"tx_id", id,
				"error", err,
			)
			result.Failed = append(result.Failed, id)
			continue
		}
		if execResult.Skipped {
			result.Skipped++
			continue
		}
		result.Executed++
	}

	logger.Info("SweepDueTransactionsWorkflow completed",
		"due", result.Due,
		"executed", result.Executed,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
	)

	return result, nil
}
