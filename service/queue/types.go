package queue

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// TxType identifies the privileged token operation a pending transaction
// will perform when it executes.
type TxType string

const (
	TxTypeMint                TxType = "MINT"
	TxTypeBurn                TxType = "BURN"
	TxTypeBurnBlacklisted     TxType = "BURN_BLACKLISTED"
	TxTypeTransferOwnership   TxType = "TRANSFER_OWNERSHIP"
	TxTypeBlacklist           TxType = "BLACKLIST"
	TxTypeFreeze              TxType = "FREEZE"
	TxTypeUnfreeze            TxType = "UNFREEZE"
	TxTypeRoleGrant           TxType = "ROLE_GRANT"
	TxTypeRoleRevoke          TxType = "ROLE_REVOKE"
	TxTypePauseToken          TxType = "PAUSE_TOKEN"
	TxTypeUnpauseToken        TxType = "UNPAUSE_TOKEN"
	TxTypeUpdateTokenContract TxType = "UPDATE_TOKEN_CONTRACT"
)

// AllTxTypes lists every transaction type, in the order the token contract
// declares them.
var AllTxTypes = []TxType{
	TxTypeMint,
	TxTypeBurn,
	TxTypeBurnBlacklisted,
	TxTypeTransferOwnership,
	TxTypeBlacklist,
	TxTypeFreeze,
	TxTypeUnfreeze,
	TxTypeRoleGrant,
	TxTypeRoleRevoke,
	TxTypePauseToken,
	TxTypeUnpauseToken,
	TxTypeUpdateTokenContract,
}

// ParseTxType converts a string to a TxType, validating it against the
// known set.
func ParseTxType(s string) (TxType, error) {
	for _, t := range AllTxTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Status is the lifecycle state of a pending transaction. Transitions are
// one-way: PENDING is the only non-terminal state.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusRejected     Status = "REJECTED"
	StatusExecuted     Status = "EXECUTED"
	StatusAutoExecuted Status = "AUTO_EXECUTED"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Role is a named capability an address may hold.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleMinter           Role = "MINTER"
	RoleBurner           Role = "BURNER"
	RoleApprover         Role = "APPROVER"
	RoleBlacklistManager Role = "BLACKLIST_MANAGER"
	RoleFreezeManager    Role = "FREEZE_MANAGER"
	RolePauser           Role = "PAUSER"
	RoleUpgrader         Role = "UPGRADER"
)

// AllRoles lists every role the registry recognizes.
var AllRoles = []Role{
	RoleAdmin,
	RoleMinter,
	RoleBurner,
	RoleApprover,
	RoleBlacklistManager,
	RoleFreezeManager,
	RolePauser,
	RoleUpgrader,
}

// ParseRole converts a string to a Role, validating it against the known set.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// PendingTransaction is a queued privileged operation. It is retained
// forever as audit history; only its status (and the terminal-transition
// fields) ever change after creation.
type PendingTransaction struct {
	ID              int64
	TxType          TxType
	Status          Status
	Initiator       string
	Target          string
	Amount          *big.Int // base units; nil treated as zero
	Data            string   // operation-specific sidecar (role name, blacklist flag)
	RejectionReason string
	Approver        string
	CreatedAt       time.Time
	ExecuteAfter    time.Time
}

// Due reports whether the transaction is eligible for auto-execution at
// the given time.
func (p *PendingTransaction) Due(now time.Time) bool {
	return !now.Before(p.ExecuteAfter)
}

// RedemptionRequest is a user's intent to have their own tokens burned.
// Approval does not move tokens; it enqueues a BURN through the normal
// queue lifecycle.
type RedemptionRequest struct {
	ID          int64
	User        string
	Amount      *big.Int
	Processed   bool
	Approved    bool
	BurnTxID    *int64 // set when approval queued a burn
	CreatedAt   time.Time
	ProcessedAt *time.Time
	ProcessedBy string
}

// Sentinel errors. Handlers map these onto HTTP status codes, so keep them
// stable.
var (
	ErrUnauthorized      = errors.New("caller lacks required role")
	ErrNotFound          = errors.New("transaction not found")
	ErrNotPending        = errors.New("transaction is not pending")
	ErrCooldownActive    = errors.New("cooldown period has not elapsed")
	ErrProtectedAddress  = errors.New("target address is protected")
	ErrZeroAddress       = errors.New("target is the zero address")
	ErrEmptyReason       = errors.New("rejection reason required")
	ErrApproverFloor     = errors.New("revoke would drop approvers below the required minimum")
	ErrQueuePaused       = errors.New("queue is paused")
	ErrAlreadyProcessed  = errors.New("redemption request already processed")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// DispatchError wraps a failure of the underlying token call. The
// transaction stays PENDING; the attempt may be retried or the transaction
// rejected.
type DispatchError struct {
	TxID   int64
	TxType TxType
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed for transaction %d (%s): %v", e.TxID, e.TxType, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ZeroAddress is the EVM zero address; minting or targeting it is always
// invalid.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// IsZeroAddress reports whether addr is empty or the canonical zero address.
func IsZeroAddress(addr string) bool {
	return addr == "" || addr == ZeroAddress
}
