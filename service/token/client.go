// Package token talks to the GSDC token gateway, the bridge that signs and
// submits privileged calls against the token contract. The queue never
// holds chain credentials itself; the gateway does, and it only accepts
// calls from this service.
package token

import (
	"context"
	"errors"
	"math/big"
)

// ErrCallReverted is returned when the gateway reports that the underlying
// contract call reverted. The queue treats it as a retryable dispatch
// failure: the pending transaction stays PENDING.
var ErrCallReverted = errors.New("token contract call reverted")

// Client is the privileged surface of the GSDC token contract. The queue's
// dispatch step is the only caller of the mutating methods.
type Client interface {
	// Mint creates amount new tokens for the target address.
	Mint(ctx context.Context, target string, amount *big.Int) error

	// BurnFrom destroys amount tokens held by target, consuming the
	// allowance target granted to the queue's gateway account.
	BurnFrom(ctx context.Context, target string, amount *big.Int) error

	// BurnBlacklisted destroys amount tokens held by a blacklisted
	// target, bypassing the normal transfer checks. Fails if the target
	// is not currently blacklisted.
	BurnBlacklisted(ctx context.Context, target string, amount *big.Int) error

	// SetBlacklistStatus adds or removes target from the blacklist.
	SetBlacklistStatus(ctx context.Context, target string, blacklisted bool) error

	// Freeze and Unfreeze toggle the transfer freeze on target.
	Freeze(ctx context.Context, target string) error
	Unfreeze(ctx context.Context, target string) error

	// Pause and Unpause toggle all token transfers.
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error

	// TransferOwnership hands the token contract's ownership to a new
	// address.
	TransferOwnership(ctx context.Context, newOwner string) error

	// UpdateTokenContract repoints the gateway at a new token contract
	// address (proxy upgrades).
	UpdateTokenContract(ctx context.Context, newContract string) error

	// Read-only queries consumed by the UI and by protected-address
	// checks.
	IsBlacklisted(ctx context.Context, address string) (bool, error)
	IsFrozen(ctx context.Context, address string) (bool, error)
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	Allowance(ctx context.Context, owner string) (*big.Int, error)
}
