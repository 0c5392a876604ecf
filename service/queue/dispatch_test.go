package queue

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPending inserts a PENDING transaction directly, bypassing the
// queue-time checks, so dispatch-time behavior can be exercised on its own.
func seedPending(t *testing.T, store *MemoryStore, params CreateTransactionParams) *PendingTransaction {
	t.Helper()
	now := time.Now().UTC()
	params.CreatedAt = now
	params.ExecuteAfter = now.Add(90 * time.Minute)
	txn, err := store.CreatePendingTransaction(context.Background(), params)
	require.NoError(t, err)
	return txn
}

func TestDispatchRejectsMintToZeroAddress(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	txn := seedPending(t, store, CreateTransactionParams{
		TxType:    TxTypeMint,
		Initiator: minterAddr,
		Target:    ZeroAddress,
		Amount:    big.NewInt(1),
	})

	_, err := svc.Approve(ctx, txn.ID, approverAddr)
	require.ErrorIs(t, err, ErrZeroAddress)

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)

	got, err := svc.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestDispatchBurnBlacklistedRequiresFlag(t *testing.T) {
	svc, _, tok, _ := newTestService(t)
	ctx := context.Background()

	tok.SetBalance(userAddr, big.NewInt(1000))

	txn, err := svc.Queue(ctx, QueueParams{
		TxType:    TxTypeBurnBlacklisted,
		Initiator: burnerAddr,
		Target:    userAddr,
		Amount:    big.NewInt(1000),
	})
	require.NoError(t, err)

	// The target is not blacklisted, so the seizure fails.
	_, err = svc.Approve(ctx, txn.ID, approverAddr)
	require.Error(t, err)

	// Blacklist the target, then the same transaction goes through.
	require.NoError(t, tok.SetBlacklistStatus(ctx, userAddr, true))

	executed, err := svc.Approve(ctx, txn.ID, approverAddr)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, executed.Status)

	bal, err := tok.BalanceOf(ctx, userAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Int64())
}

func TestDispatchBurnRequiresAllowance(t *testing.T) {
	svc, _, tok, _ := newTestService(t)
	ctx := context.Background()

	tok.SetBalance(userAddr, big.NewInt(500))

	txn, err := svc.Queue(ctx, QueueParams{
		TxType:    TxTypeBurn,
		Initiator: burnerAddr,
		Target:    userAddr,
		Amount:    big.NewInt(500),
	})
	require.NoError(t, err)

	// No allowance granted yet; the token reverts the burn.
	_, err = svc.Approve(ctx, txn.ID, approverAddr)
	require.Error(t, err)

	got, err := svc.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	tok.SetAllowance(userAddr, big.NewInt(500))

	executed, err := svc.Approve(ctx, txn.ID, approverAddr)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, executed.Status)
}

func TestDispatchRoleChangesMutateRegistry(t *testing.T) {
	svc, store, tok, _ := newTestService(t)
	ctx := context.Background()

	grant, err := svc.Queue(ctx, QueueParams{
		TxType:    TxTypeRoleGrant,
		Initiator: adminAddr,
		Target:    userAddr,
		Data:      "MINTER",
	})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, grant.ID, approverAddr)
	require.NoError(t, err)

	held, err := store.HasRole(ctx, RoleMinter, userAddr)
	require.NoError(t, err)
	assert.True(t, held)

	// Role changes never call the token.
	assert.Empty(t, tok.Calls())

	revoke, err := svc.Queue(ctx, QueueParams{
		TxType:    TxTypeRoleRevoke,
		Initiator: adminAddr,
		Target:    userAddr,
		Data:      "MINTER",
	})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, revoke.ID, approverAddr)
	require.NoError(t, err)

	held, err = store.HasRole(ctx, RoleMinter, userAddr)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestDispatchRechecksProtectionUnderClaim(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	// Blacklisting userAddr is fine at queue time.
	txn, err := svc.Queue(ctx, QueueParams{
		TxType:    TxTypeBlacklist,
		Initiator: adminAddr,
		Target:    userAddr,
		Data:      "true",
	})
	require.NoError(t, err)

	// The target becomes an approver during the cooldown.
	require.NoError(t, store.GrantRole(ctx, RoleApprover, userAddr))

	_, err = svc.Approve(ctx, txn.ID, approverAddr)
	require.ErrorIs(t, err, ErrProtectedAddress)

	got, err := svc.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestDispatchApproverFloorRecheckedUnderClaim(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	// Two approvers exist, so revoking one is queueable.
	require.NoError(t, store.GrantRole(ctx, RoleApprover, otherAddr))

	txn, err := svc.Queue(ctx, QueueParams{
		TxType:    TxTypeRoleRevoke,
		Initiator: adminAddr,
		Target:    approverAddr,
		Data:      "APPROVER",
	})
	require.NoError(t, err)

	// The other approver disappears during the cooldown; executing the
	// revoke would now empty the approver set.
	require.NoError(t, store.RevokeRole(ctx, RoleApprover, otherAddr))

	_, err = svc.Approve(ctx, txn.ID, adminAddr)
	require.ErrorIs(t, err, ErrApproverFloor)
}

func TestDispatchTokenCalls(t *testing.T) {
	tests := []struct {
		name     string
		params   QueueParams
		wantCall string
	}{
		{
			name:     "freeze",
			params:   QueueParams{TxType: TxTypeFreeze, Initiator: adminAddr, Target: userAddr},
			wantCall: "freeze " + userAddr,
		},
		{
			name:     "unfreeze",
			params:   QueueParams{TxType: TxTypeUnfreeze, Initiator: adminAddr, Target: userAddr},
			wantCall: "unfreeze " + userAddr,
		},
		{
			name:     "pause token",
			params:   QueueParams{TxType: TxTypePauseToken, Initiator: adminAddr},
			wantCall: "pause ",
		},
		{
			name:     "unpause token",
			params:   QueueParams{TxType: TxTypeUnpauseToken, Initiator: adminAddr},
			wantCall: "unpause ",
		},
		{
			name:     "transfer ownership",
			params:   QueueParams{TxType: TxTypeTransferOwnership, Initiator: adminAddr, Target: otherAddr},
			wantCall: "transfer-ownership " + otherAddr,
		},
		{
			name:     "update token contract",
			params:   QueueParams{TxType: TxTypeUpdateTokenContract, Initiator: adminAddr, Target: otherAddr},
			wantCall: "update-token-contract " + otherAddr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, tok, _ := newTestService(t)
			ctx := context.Background()

			txn, err := svc.Queue(ctx, tt.params)
			require.NoError(t, err)

			_, err = svc.Approve(ctx, txn.ID, approverAddr)
			require.NoError(t, err)

			assert.Contains(t, tok.Calls(), tt.wantCall)
		})
	}
}
