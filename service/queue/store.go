package queue

import (
	"context"
	"math/big"
	"time"
)

// CreateTransactionParams contains the parameters for inserting a queued
// transaction. CreatedAt and ExecuteAfter are supplied by the service so
// it owns the clock.
type CreateTransactionParams struct {
	TxType       TxType
	Initiator    string
	Target       string
	Amount       *big.Int
	Data         string
	CreatedAt    time.Time
	ExecuteAfter time.Time
}

// ListTransactionsParams contains filter and pagination parameters.
type ListTransactionsParams struct {
	Status string // empty means all statuses
	Limit  int32
	Offset int32
}

// Claim is a held lock on a single PENDING transaction. Exactly one of
// Finish or Release must be called; Finish commits a terminal status,
// Release leaves the transaction PENDING.
type Claim interface {
	Transaction() *PendingTransaction
	Finish(ctx context.Context, status Status, approver, reason string) error
	Release(ctx context.Context)
}

// Store is the persistence surface the service requires. Implemented by
// the Postgres store in service/db.
type Store interface {
	CreatePendingTransaction(ctx context.Context, params CreateTransactionParams) (*PendingTransaction, error)
	GetPendingTransaction(ctx context.Context, id int64) (*PendingTransaction, error)
	ListTransactions(ctx context.Context, params ListTransactionsParams) ([]*PendingTransaction, error)
	ListPendingTransactionIDs(ctx context.Context) ([]int64, error)
	ListDueTransactionIDs(ctx context.Context, now time.Time) ([]int64, error)

	// Claim serializes terminal transitions on one id.
	Claim(ctx context.Context, id int64) (Claim, error)

	// Role registry.
	GrantRole(ctx context.Context, role Role, address string) error
	RevokeRole(ctx context.Context, role Role, address string) error
	HasRole(ctx context.Context, role Role, address string) (bool, error)
	CountRoleHolders(ctx context.Context, role Role) (int64, error)
	ListRoles(ctx context.Context, address string) ([]Role, error)
	ListRoleHolders(ctx context.Context, role Role) ([]string, error)

	// Redemption requests.
	CreateRedemptionRequest(ctx context.Context, user string, amount *big.Int) (*RedemptionRequest, error)
	GetRedemptionRequest(ctx context.Context, id int64) (*RedemptionRequest, error)
	ListRedemptionRequests(ctx context.Context, processed *bool) ([]*RedemptionRequest, error)
	MarkRedemptionProcessed(ctx context.Context, id int64, approved bool, admin string) (*RedemptionRequest, error)

	// ApproveRedemption marks an unprocessed request approved, inserts the
	// burn transaction and links it, all in one store transaction: either
	// the request is processed with its burn queued, or nothing changed and
	// the request stays retryable.
	ApproveRedemption(ctx context.Context, id int64, admin string, burn CreateTransactionParams) (*RedemptionRequest, *PendingTransaction, error)

	// Emergency pause flag.
	IsQueuePaused(ctx context.Context) (bool, error)
	SetQueuePaused(ctx context.Context, paused bool) error
}
