package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/gsdc-platform/adminq/service/nats"
	"github.com/gsdc-platform/adminq/service/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRedemptionValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RequestRedemption(ctx, "", big.NewInt(100))
	require.ErrorIs(t, err, ErrZeroAddress)

	_, err = svc.RequestRedemption(ctx, ZeroAddress, big.NewInt(100))
	require.ErrorIs(t, err, ErrZeroAddress)

	_, err = svc.RequestRedemption(ctx, userAddr, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.RequestRedemption(ctx, userAddr, big.NewInt(-5))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRequestRedemption(t *testing.T) {
	svc, _, tok, pub := newTestService(t)
	ctx := context.Background()

	req, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(700))
	require.NoError(t, err)
	assert.Equal(t, userAddr, req.User)
	assert.False(t, req.Processed)
	assert.Nil(t, req.BurnTxID)

	// Requesting moves no tokens and queues nothing.
	assert.Empty(t, tok.Calls())
	pending, err := svc.ListPendingIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events := pub.RedemptionEvents()
	require.Len(t, events, 1)
	assert.Equal(t, nats.EventRedemptionRequested, events[0].Kind)
	assert.Equal(t, "700", events[0].Amount)
}

func TestProcessRedemptionRequiresAdmin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	req, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(100))
	require.NoError(t, err)

	_, err = svc.ProcessRedemption(ctx, req.ID, true, approverAddr)
	require.ErrorIs(t, err, ErrUnauthorized)

	got, err := svc.GetRedemptionRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
}

func TestProcessRedemptionDeny(t *testing.T) {
	svc, _, _, pub := newTestService(t)
	ctx := context.Background()

	req, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(100))
	require.NoError(t, err)

	processed, err := svc.ProcessRedemption(ctx, req.ID, false, adminAddr)
	require.NoError(t, err)
	assert.True(t, processed.Processed)
	assert.False(t, processed.Approved)
	assert.Equal(t, adminAddr, processed.ProcessedBy)
	assert.Nil(t, processed.BurnTxID)

	// Denial queues nothing.
	pending, err := svc.ListPendingIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events := pub.RedemptionEvents()
	require.Len(t, events, 2)
	assert.Equal(t, nats.EventRedemptionProcessed, events[1].Kind)
	assert.False(t, events[1].Approved)
}

func TestProcessRedemptionApproveQueuesBurn(t *testing.T) {
	svc, _, tok, _ := newTestService(t)
	ctx := context.Background()

	req, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(900))
	require.NoError(t, err)

	processed, err := svc.ProcessRedemption(ctx, req.ID, true, adminAddr)
	require.NoError(t, err)
	assert.True(t, processed.Approved)
	require.NotNil(t, processed.BurnTxID)

	// Approval queues a BURN through the normal lifecycle; no tokens have
	// moved yet.
	burn, err := svc.GetTransaction(ctx, *processed.BurnTxID)
	require.NoError(t, err)
	assert.Equal(t, TxTypeBurn, burn.TxType)
	assert.Equal(t, StatusPending, burn.Status)
	assert.Equal(t, userAddr, burn.Target)
	assert.Equal(t, adminAddr, burn.Initiator)
	assert.Equal(t, big.NewInt(900), burn.Amount)
	assert.Empty(t, tok.Calls())

	// The burn executes like any other queued transaction.
	tok.SetBalance(userAddr, big.NewInt(900))
	tok.SetAllowance(userAddr, big.NewInt(900))

	executed, err := svc.Approve(ctx, burn.ID, approverAddr)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, executed.Status)

	bal, err := tok.BalanceOf(ctx, userAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Int64())
}

// failingApprovalStore fails ApproveRedemption while err is set and
// delegates everything else.
type failingApprovalStore struct {
	Store
	err error
}

func (s *failingApprovalStore) ApproveRedemption(ctx context.Context, id int64, admin string, burn CreateTransactionParams) (*RedemptionRequest, *PendingTransaction, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.Store.ApproveRedemption(ctx, id, admin, burn)
}

func TestProcessRedemptionApprovalStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	failing := &failingApprovalStore{Store: store, err: errors.New("insert failed")}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewService(failing, token.NewMock(), nats.NewMockPublisher(), nil, logger, 90*time.Minute, 1)
	require.NoError(t, store.GrantRole(ctx, RoleAdmin, adminAddr))

	req, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(300))
	require.NoError(t, err)

	_, err = svc.ProcessRedemption(ctx, req.ID, true, adminAddr)
	require.Error(t, err)

	// The failed approval left no trace: the request is unprocessed, no
	// burn was queued, and no burn link was written.
	got, err := svc.GetRedemptionRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
	assert.Nil(t, got.BurnTxID)

	pending, err := svc.ListPendingIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Once the store recovers, the same request approves normally.
	failing.err = nil
	processed, err := svc.ProcessRedemption(ctx, req.ID, true, adminAddr)
	require.NoError(t, err)
	assert.True(t, processed.Approved)
	require.NotNil(t, processed.BurnTxID)
}

func TestProcessRedemptionTwice(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	req, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(100))
	require.NoError(t, err)

	_, err = svc.ProcessRedemption(ctx, req.ID, false, adminAddr)
	require.NoError(t, err)

	_, err = svc.ProcessRedemption(ctx, req.ID, true, adminAddr)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestProcessRedemptionPausedQueue(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	req, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(100))
	require.NoError(t, err)

	require.NoError(t, svc.Pause(ctx, adminAddr))

	// Approval would queue a burn, so it fails while paused, and the
	// decision is not recorded.
	_, err = svc.ProcessRedemption(ctx, req.ID, true, adminAddr)
	require.ErrorIs(t, err, ErrQueuePaused)

	got, err := svc.GetRedemptionRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, got.Processed)

	// Denial does not queue anything and stays available.
	processed, err := svc.ProcessRedemption(ctx, req.ID, false, adminAddr)
	require.NoError(t, err)
	assert.True(t, processed.Processed)
}

func TestListRedemptionRequests(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.RequestRedemption(ctx, userAddr, big.NewInt(1))
	require.NoError(t, err)
	_, err = svc.RequestRedemption(ctx, otherAddr, big.NewInt(2))
	require.NoError(t, err)

	_, err = svc.ProcessRedemption(ctx, first.ID, false, adminAddr)
	require.NoError(t, err)

	all, err := svc.ListRedemptionRequests(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	processed := true
	done, err := svc.ListRedemptionRequests(ctx, &processed)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, first.ID, done[0].ID)

	unprocessed := false
	open, err := svc.ListRedemptionRequests(ctx, &unprocessed)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, otherAddr, open[0].User)
}
