// Package queue implements the administrative transaction queue for the
// GSDC token: privileged operations are held for a cooldown window during
// which an approver may execute them early or reject them with a reason;
// once the window elapses, anyone may trigger execution.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/gsdc-platform/adminq/service/metrics"
	"github.com/gsdc-platform/adminq/service/nats"
	"github.com/gsdc-platform/adminq/service/token"
)

// DefaultCooldownPeriod is the observation window between queuing and
// auto-execution eligibility.
const DefaultCooldownPeriod = 90 * time.Minute

// DefaultMinApprovers is the floor below which ROLE_REVOKE may not drop
// the approver or admin count.
const DefaultMinApprovers = 1

// Execution modes recorded on the executed-transactions counter.
const (
	ModeApproved = "approved"
	ModeAuto     = "auto"
)

// Service owns the transaction queue lifecycle. All mutations of the
// token contract's privileged surface flow through it.
type Service struct {
	store        Store
	token        token.Client
	publisher    nats.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	cooldown     time.Duration
	minApprovers int64

	// now is swapped in tests to control the clock.
	now func() time.Time
}

// NewService creates the queue service. Metrics may be nil. A
// non-positive cooldown or minApprovers falls back to the defaults.
func NewService(store Store, tok token.Client, publisher nats.Publisher, m *metrics.Metrics, logger *slog.Logger, cooldown time.Duration, minApprovers int64) *Service {
	if cooldown <= 0 {
		cooldown = DefaultCooldownPeriod
	}
	if minApprovers <= 0 {
		minApprovers = DefaultMinApprovers
	}
	return &Service{
		store:        store,
		token:        tok,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
		cooldown:     cooldown,
		minApprovers: minApprovers,
		now:          time.Now,
	}
}

// CooldownPeriod returns the configured observation window.
func (s *Service) CooldownPeriod() time.Duration {
	return s.cooldown
}

// RequiredApprovals returns the configured approver floor.
func (s *Service) RequiredApprovals() int64 {
	return s.minApprovers
}

// QueueParams describes a transaction to be queued.
type QueueParams struct {
	TxType    TxType
	Initiator string
	Target    string
	Amount    *big.Int
	Data      string
}

// Queue validates and stores a new PENDING transaction. It never touches
// token state; the effect happens at approve or execute time.
func (s *Service) Queue(ctx context.Context, params QueueParams) (*PendingTransaction, error) {
	if err := s.failIfPaused(ctx); err != nil {
		return nil, err
	}

	if _, err := ParseTxType(string(params.TxType)); err != nil {
		return nil, err
	}

	ok, err := s.authorizedFor(ctx, params.Initiator, params.TxType)
	if err != nil {
		return nil, fmt.Errorf("failed to check role for %s: %w", params.Initiator, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s may not queue %s: %w", params.Initiator, params.TxType, ErrUnauthorized)
	}

	if err := validateQueueParams(params); err != nil {
		return nil, err
	}

	// Statically determinable protection violations fail at queue time;
	// the same predicate runs again at dispatch time.
	if err := s.checkProtectedTarget(ctx, params.TxType, params.Target, params.Data); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	txn, err := s.store.CreatePendingTransaction(ctx, CreateTransactionParams{
		TxType:       params.TxType,
		Initiator:    params.Initiator,
		Target:       params.Target,
		Amount:       params.Amount,
		Data:         params.Data,
		CreatedAt:    now,
		ExecuteAfter: now.Add(s.cooldown),
	})
	if err != nil {
		return nil, err
	}

	s.announceQueued(ctx, txn)

	return txn, nil
}

// announceQueued logs, counts and publishes a freshly stored PENDING
// transaction. Shared with the redemption approval path, which queues its
// burn through the store directly.
func (s *Service) announceQueued(ctx context.Context, txn *PendingTransaction) {
	s.logger.Info("transaction queued",
		"tx_id", txn.ID,
		"tx_type", txn.TxType,
		"initiator", txn.Initiator,
		"target", txn.Target,
		"execute_after", txn.ExecuteAfter,
	)
	if s.metrics != nil {
		s.metrics.RecordTransactionQueued(string(txn.TxType))
	}
	s.publishTransaction(ctx, nats.EventQueued, txn)
}

// validateQueueParams checks the per-type shape of a queue request.
func validateQueueParams(params QueueParams) error {
	switch params.TxType {
	case TxTypePauseToken, TxTypeUnpauseToken:
		// No target.
	default:
		if IsZeroAddress(params.Target) {
			return fmt.Errorf("%s requires a target: %w", params.TxType, ErrZeroAddress)
		}
	}

	switch params.TxType {
	case TxTypeMint, TxTypeBurn, TxTypeBurnBlacklisted:
		if params.Amount == nil || params.Amount.Sign() <= 0 {
			return fmt.Errorf("%s requires a positive amount: %w", params.TxType, ErrInvalidAmount)
		}
	case TxTypeBlacklist:
		if _, err := parseBlacklistFlag(params.Data); err != nil {
			return err
		}
	case TxTypeRoleGrant, TxTypeRoleRevoke:
		if _, err := ParseRole(params.Data); err != nil {
			return err
		}
	}
	return nil
}

// Approve dispatches a PENDING transaction immediately, regardless of the
// cooldown. Dispatch failure leaves the transaction PENDING.
func (s *Service) Approve(ctx context.Context, id int64, approver string) (*PendingTransaction, error) {
	if err := s.failIfPaused(ctx); err != nil {
		return nil, err
	}

	ok, err := s.authorizedToReview(ctx, approver)
	if err != nil {
		return nil, fmt.Errorf("failed to check role for %s: %w", approver, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s may not approve: %w", approver, ErrUnauthorized)
	}

	claim, err := s.store.Claim(ctx, id)
	if err != nil {
		return nil, err
	}
	txn := claim.Transaction()

	if err := s.dispatch(ctx, txn); err != nil {
		claim.Release(ctx)
		s.logger.Error("approval dispatch failed",
			"tx_id", id,
			"tx_type", txn.TxType,
			"approver", approver,
			"error", err,
		)
		return nil, err
	}

	if err := claim.Finish(ctx, StatusExecuted, approver, ""); err != nil {
		// The token effect has been applied but the status write failed.
		// Surface loudly; the transaction stays PENDING and a retry of
		// approve would re-apply the effect.
		s.logger.Error("failed to record executed status after dispatch",
			"tx_id", id,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("transaction approved and executed",
		"tx_id", id,
		"tx_type", txn.TxType,
		"approver", approver,
	)
	s.recordTerminal(txn, ModeApproved)
	if s.metrics != nil {
		s.metrics.RecordTransactionApproved(string(txn.TxType))
	}
	s.publishTransaction(ctx, nats.EventApproved, txn)
	s.publishTransaction(ctx, nats.EventExecuted, txn)

	return txn, nil
}

// Reject terminates a PENDING transaction with a reason. Rejection is
// allowed while the queue is paused so a bad transaction can still be
// killed during an incident.
func (s *Service) Reject(ctx context.Context, id int64, approver, reason string) (*PendingTransaction, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}

	ok, err := s.authorizedToReview(ctx, approver)
	if err != nil {
		return nil, fmt.Errorf("failed to check role for %s: %w", approver, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s may not reject: %w", approver, ErrUnauthorized)
	}

	claim, err := s.store.Claim(ctx, id)
	if err != nil {
		return nil, err
	}
	txn := claim.Transaction()

	if err := claim.Finish(ctx, StatusRejected, approver, reason); err != nil {
		return nil, err
	}

	s.logger.Info("transaction rejected",
		"tx_id", id,
		"tx_type", txn.TxType,
		"approver", approver,
		"reason", reason,
	)
	s.recordTerminal(txn, "")
	if s.metrics != nil {
		s.metrics.RecordTransactionRejected(string(txn.TxType))
	}
	s.publishTransaction(ctx, nats.EventRejected, txn)

	return txn, nil
}

// Execute auto-executes a PENDING transaction whose cooldown has elapsed.
// Callable by anyone; no approver identity is recorded.
func (s *Service) Execute(ctx context.Context, id int64) (*PendingTransaction, error) {
	if err := s.failIfPaused(ctx); err != nil {
		return nil, err
	}

	claim, err := s.store.Claim(ctx, id)
	if err != nil {
		return nil, err
	}
	txn := claim.Transaction()

	if !txn.Due(s.now().UTC()) {
		claim.Release(ctx)
		return nil, fmt.Errorf("transaction %d executable after %s: %w", id, txn.ExecuteAfter.Format(time.RFC3339), ErrCooldownActive)
	}

	if err := s.dispatch(ctx, txn); err != nil {
		claim.Release(ctx)
		s.logger.Error("auto-execution dispatch failed",
			"tx_id", id,
			"tx_type", txn.TxType,
			"error", err,
		)
		return nil, err
	}

	if err := claim.Finish(ctx, StatusAutoExecuted, "", ""); err != nil {
		s.logger.Error("failed to record auto-executed status after dispatch",
			"tx_id", id,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("transaction auto-executed",
		"tx_id", id,
		"tx_type", txn.TxType,
	)
	s.recordTerminal(txn, ModeAuto)
	s.publishTransaction(ctx, nats.EventExecuted, txn)

	return txn, nil
}

// Pause sets the emergency pause flag. While paused, Queue, Approve and
// Execute fail; Reject still works.
func (s *Service) Pause(ctx context.Context, admin string) error {
	return s.setPaused(ctx, admin, true)
}

// Unpause clears the emergency pause flag.
func (s *Service) Unpause(ctx context.Context, admin string) error {
	return s.setPaused(ctx, admin, false)
}

func (s *Service) setPaused(ctx context.Context, admin string, paused bool) error {
	isAdmin, err := s.store.HasRole(ctx, RoleAdmin, admin)
	if err != nil {
		return fmt.Errorf("failed to check role for %s: %w", admin, err)
	}
	if !isAdmin {
		return fmt.Errorf("%s may not change the pause state: %w", admin, ErrUnauthorized)
	}
	if err := s.store.SetQueuePaused(ctx, paused); err != nil {
		return err
	}
	s.logger.Warn("queue pause state changed", "paused", paused, "admin", admin)
	return nil
}

// Paused returns the emergency pause flag.
func (s *Service) Paused(ctx context.Context) (bool, error) {
	return s.store.IsQueuePaused(ctx)
}

func (s *Service) failIfPaused(ctx context.Context) error {
	paused, err := s.store.IsQueuePaused(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pause state: %w", err)
	}
	if paused {
		return ErrQueuePaused
	}
	return nil
}

// Query surface.

// GetTransaction retrieves a transaction by id, any status.
func (s *Service) GetTransaction(ctx context.Context, id int64) (*PendingTransaction, error) {
	return s.store.GetPendingTransaction(ctx, id)
}

// ListTransactions retrieves transactions with optional status filter.
func (s *Service) ListTransactions(ctx context.Context, params ListTransactionsParams) ([]*PendingTransaction, error) {
	return s.store.ListTransactions(ctx, params)
}

// ListPendingIDs returns the ids of all PENDING transactions.
func (s *Service) ListPendingIDs(ctx context.Context) ([]int64, error) {
	return s.store.ListPendingTransactionIDs(ctx)
}

// ListDueIDs returns the ids of PENDING transactions whose cooldown has
// elapsed.
func (s *Service) ListDueIDs(ctx context.Context) ([]int64, error) {
	return s.store.ListDueTransactionIDs(ctx, s.now().UTC())
}

// IsBlacklisted reports the token's blacklist flag for an address.
func (s *Service) IsBlacklisted(ctx context.Context, address string) (bool, error) {
	return s.token.IsBlacklisted(ctx, address)
}

// IsFrozen reports the token's freeze flag for an address.
func (s *Service) IsFrozen(ctx context.Context, address string) (bool, error) {
	return s.token.IsFrozen(ctx, address)
}

// RolesOf returns the roles held by an address.
func (s *Service) RolesOf(ctx context.Context, address string) ([]Role, error) {
	return s.store.ListRoles(ctx, address)
}

// recordTerminal observes how long the transaction spent PENDING and, for
// executions, counts the execution mode.
func (s *Service) recordTerminal(txn *PendingTransaction, mode string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTimeInQueue(string(txn.TxType), string(txn.Status), s.now().UTC().Sub(txn.CreatedAt).Seconds())
	if mode != "" {
		s.metrics.RecordTransactionExecuted(string(txn.TxType), mode)
	}
}

// publishTransaction emits a lifecycle event. Publish failures are logged,
// not surfaced: the state transition has already committed and events are
// a downstream notification, not part of the transition.
func (s *Service) publishTransaction(ctx context.Context, kind string, txn *PendingTransaction) {
	if s.publisher == nil {
		return
	}
	event := &nats.TransactionEvent{
		Kind:        kind,
		TxID:        txn.ID,
		TxType:      string(txn.TxType),
		Status:      string(txn.Status),
		Initiator:   txn.Initiator,
		Target:      txn.Target,
		Approver:    txn.Approver,
		Reason:      txn.RejectionReason,
		Auto:        txn.Status == StatusAutoExecuted,
		PublishedAt: time.Now().UTC(),
	}
	if txn.Amount != nil {
		event.Amount = txn.Amount.String()
	}
	if err := s.publisher.PublishTransaction(ctx, event); err != nil {
		s.logger.Error("failed to publish transaction event",
			"kind", kind,
			"tx_id", txn.ID,
			"error", err,
		)
	}
}
