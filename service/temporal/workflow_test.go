package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"
)

func TestSweepDueTransactionsWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		mockActivities func(env *testsuite.TestWorkflowEnvironment, activities *Activities)
		expectedError  bool
		validateResult func(*testing.T, *SweepResult)
	}{
		{
			name: "no due transactions",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.ListDueTransactions, mock.Anything).
					Return(&ListDueTransactionsResult{IDs: nil}, nil)
				// ExecuteTransaction should not be called.
			},
			validateResult: func(t *testing.T, result *SweepResult) {
				assert.Equal(t, 0, result.Due)
				assert.Equal(t, 0, result.Executed)
				assert.Empty(t, result.Failed)
			},
		},
		{
			name: "executes every due transaction",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.ListDueTransactions, mock.Anything).
					Return(&ListDueTransactionsResult{IDs: []int64{1, 2, 3}}, nil)
				for _, id := range []int64{1, 2, 3} {
					env.OnActivity(activities.ExecuteTransaction, mock.Anything, ExecuteTransactionInput{ID: id}).
						Return(&ExecuteTransactionResult{ID: id, Executed: true}, nil)
				}
			},
			validateResult: func(t *testing.T, result *SweepResult) {
				assert.Equal(t, 3, result.Due)
				assert.Equal(t, 3, result.Executed)
				assert.Equal(t, 0, result.Skipped)
				assert.Empty(t, result.Failed)
			},
		},
		{
			name: "one failure does not abort the sweep",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.ListDueTransactions, mock.Anything).
					Return(&ListDueTransactionsResult{IDs: []int64{10, 11, 12}}, nil)
				env.OnActivity(activities.ExecuteTransaction, mock.Anything, ExecuteTransactionInput{ID: 10}).
					Return(&ExecuteTransactionResult{ID: 10, Executed: true}, nil)
				env.OnActivity(activities.ExecuteTransaction, mock.Anything, ExecuteTransactionInput{ID: 11}).
					Return(nil, errors.New("token gateway unavailable"))
				env.OnActivity(activities.ExecuteTransaction, mock.Anything, ExecuteTransactionInput{ID: 12}).
					Return(&ExecuteTransactionResult{ID: 12, Executed: true}, nil)
			},
			validateResult: func(t *testing.T, result *SweepResult) {
				assert.Equal(t, 3, result.Due)
				assert.Equal(t, 2, result.Executed)
				assert.Equal(t, []int64{11}, result.Failed)
			},
		},
		{
			name: "counts skipped transactions",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.ListDueTransactions, mock.Anything).
					Return(&ListDueTransactionsResult{IDs: []int64{5, 6}}, nil)
				env.OnActivity(activities.ExecuteTransaction, mock.Anything, ExecuteTransactionInput{ID: 5}).
					Return(&ExecuteTransactionResult{ID: 5, Skipped: true}, nil)
				env.OnActivity(activities.ExecuteTransaction, mock.Anything, ExecuteTransactionInput{ID: 6}).
					Return(&ExecuteTransactionResult{ID: 6, Executed: true}, nil)
			},
			validateResult: func(t *testing.T, result *SweepResult) {
				assert.Equal(t, 2, result.Due)
				assert.Equal(t, 1, result.Executed)
				assert.Equal(t, 1, result.Skipped)
				assert.Empty(t, result.Failed)
			},
		},
		{
			name: "listing failure aborts the sweep",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.ListDueTransactions, mock.Anything).
					Return(nil, errors.New("database unavailable"))
			},
			expectedError: true,
			validateResult: func(t *testing.T, result *SweepResult) {
				assert.Equal(t, 0, result.Executed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestWorkflowEnvironment()

			activities := &Activities{}
			env.RegisterActivity(activities.ListDueTransactions)
			env.RegisterActivity(activities.ExecuteTransaction)

			tt.mockActivities(env, activities)

			env.ExecuteWorkflow(SweepDueTransactionsWorkflow, SweepInput{})

			if tt.expectedError {
				assert.Error(t, env.GetWorkflowError())
			} else {
				assert.NoError(t, env.GetWorkflowError())
			}

			var result SweepResult
			env.GetWorkflowResult(&result)
			tt.validateResult(t, &result)
		})
	}
}

func TestSweepDueTransactionsWorkflow_ActivityRetries(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.ListDueTransactions)
	env.RegisterActivity(activities.ExecuteTransaction)

	// ListDueTransactions fails twice then succeeds; the retry policy
	// allows three attempts.
	callCount := 0
	env.OnActivity(activities.ListDueTransactions, mock.Anything).Run(func(args mock.Arguments) {
		callCount++
		if callCount < 3 {
			panic("transient error")
		}
	}).Return(&ListDueTransactionsResult{IDs: []int64{1}}, nil)

	env.OnActivity(activities.ExecuteTransaction, mock.Anything, ExecuteTransactionInput{ID: 1}).
		Return(&ExecuteTransactionResult{ID: 1, Executed: true}, nil)

	env.ExecuteWorkflow(SweepDueTransactionsWorkflow, SweepInput{})

	assert.NoError(t, env.GetWorkflowError())

	var result SweepResult
	assert.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 1, result.Executed)
	assert.Equal(t, 3, callCount)
}
