package temporal

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/gsdc-platform/adminq/service/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

// Stub queue service for activity tests.
type stubQueueService struct {
	ListDueIDsFunc func(ctx context.Context) ([]int64, error)
	ExecuteFunc    func(ctx context.Context, id int64) (*queue.PendingTransaction, error)
}

func (s *stubQueueService) ListDueIDs(ctx context.Context) ([]int64, error) {
	if s.ListDueIDsFunc != nil {
		return s.ListDueIDsFunc(ctx)
	}
	return nil, errors.New("ListDueIDsFunc not set")
}

func (s *stubQueueService) Execute(ctx context.Context, id int64) (*queue.PendingTransaction, error) {
	if s.ExecuteFunc != nil {
		return s.ExecuteFunc(ctx, id)
	}
	return nil, errors.New("ExecuteFunc not set")
}

func TestListDueTransactionsActivity(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	svc := &stubQueueService{
		ListDueIDsFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{4, 7}, nil
		},
	}
	activities := NewActivities(svc, nil, nil)
	env.RegisterActivity(activities.ListDueTransactions)

	val, err := env.ExecuteActivity(activities.ListDueTransactions)
	require.NoError(t, err)

	var result ListDueTransactionsResult
	require.NoError(t, val.Get(&result))
	assert.Equal(t, []int64{4, 7}, result.IDs)
}

func TestListDueTransactionsActivity_StoreError(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	svc := &stubQueueService{
		ListDueIDsFunc: func(ctx context.Context) ([]int64, error) {
			return nil, errors.New("connection refused")
		},
	}
	activities := NewActivities(svc, nil, nil)
	env.RegisterActivity(activities.ListDueTransactions)

	_, err := env.ExecuteActivity(activities.ListDueTransactions)
	assert.Error(t, err)
}

func TestExecuteTransactionActivity(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	var gotID int64
	svc := &stubQueueService{
		ExecuteFunc: func(ctx context.Context, id int64) (*queue.PendingTransaction, error) {
			gotID = id
			return &queue.PendingTransaction{
				ID:     id,
				TxType: queue.TxTypeMint,
				Status: queue.StatusAutoExecuted,
				Amount: big.NewInt(100),
			}, nil
		},
	}
	activities := NewActivities(svc, nil, nil)
	env.RegisterActivity(activities.ExecuteTransaction)

	val, err := env.ExecuteActivity(activities.ExecuteTransaction, ExecuteTransactionInput{ID: 42})
	require.NoError(t, err)

	var result ExecuteTransactionResult
	require.NoError(t, val.Get(&result))
	assert.Equal(t, int64(42), result.ID)
	assert.True(t, result.Executed)
	assert.False(t, result.Skipped)
	assert.Equal(t, int64(42), gotID)
}

// Transactions that lost eligibility between listing and execution are
// reported as skipped so the sweep does not retry them.
func TestExecuteTransactionActivity_Skips(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"already terminal", queue.ErrNotPending},
		{"deleted", queue.ErrNotFound},
		{"cooldown restarted", queue.ErrCooldownActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestActivityEnvironment()

			svc := &stubQueueService{
				ExecuteFunc: func(ctx context.Context, id int64) (*queue.PendingTransaction, error) {
					return nil, tt.err
				},
			}
			activities := NewActivities(svc, nil, nil)
			env.RegisterActivity(activities.ExecuteTransaction)

			val, err := env.ExecuteActivity(activities.ExecuteTransaction, ExecuteTransactionInput{ID: 9})
			require.NoError(t, err)

			var result ExecuteTransactionResult
			require.NoError(t, val.Get(&result))
			assert.True(t, result.Skipped)
			assert.False(t, result.Executed)
		})
	}
}

func TestExecuteTransactionActivity_DispatchError(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	svc := &stubQueueService{
		ExecuteFunc: func(ctx context.Context, id int64) (*queue.PendingTransaction, error) {
			return nil, &queue.DispatchError{TxID: id, TxType: queue.TxTypeMint, Err: errors.New("gateway timeout")}
		},
	}
	activities := NewActivities(svc, nil, nil)
	env.RegisterActivity(activities.ExecuteTransaction)

	_, err := env.ExecuteActivity(activities.ExecuteTransaction, ExecuteTransactionInput{ID: 9})
	assert.Error(t, err)
}

func TestMockScheduler(t *testing.T) {
	ctx := context.Background()
	sched := NewMockScheduler()

	assert.False(t, sched.ScheduleExists())
	require.NoError(t, sched.EnsureSweepSchedule(ctx, 5*time.Minute))
	assert.True(t, sched.ScheduleExists())

	interval, ok := sched.GetScheduleInterval()
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, interval)

	require.NoError(t, sched.DeleteSweepSchedule(ctx))
	assert.False(t, sched.ScheduleExists())
	assert.Error(t, sched.DeleteSweepSchedule(ctx))
}
