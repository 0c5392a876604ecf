package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// Mock is an in-memory implementation of Client for testing. It models
// enough token behavior for the queue's dispatch semantics: balances,
// burn allowances, blacklist and freeze flags, and the transfer pause.
type Mock struct {
	mu          sync.RWMutex
	balances    map[string]*big.Int
	allowances  map[string]*big.Int // owner -> allowance granted to the gateway account
	blacklisted map[string]bool
	frozen      map[string]bool
	paused      bool
	owner       string
	contract    string
	callErr     error
	calls       []string
}

// NewMock creates a mock token with empty state.
func NewMock() *Mock {
	return &Mock{
		balances:    make(map[string]*big.Int),
		allowances:  make(map[string]*big.Int),
		blacklisted: make(map[string]bool),
		frozen:      make(map[string]bool),
	}
}

// SetCallError makes every mutating call return err (nil to clear).
func (m *Mock) SetCallError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callErr = err
}

// SetBalance sets an address's balance directly (fixture setup).
func (m *Mock) SetBalance(address string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = new(big.Int).Set(amount)
}

// SetAllowance sets the burn allowance an owner has granted.
func (m *Mock) SetAllowance(owner string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[owner] = new(big.Int).Set(amount)
}

// Calls returns the mutating calls made so far, as "op target" strings.
func (m *Mock) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Owner returns the current contract owner recorded by TransferOwnership.
func (m *Mock) Owner() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner
}

// Contract returns the address recorded by UpdateTokenContract.
func (m *Mock) Contract() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contract
}

// Paused reports whether token transfers are paused.
func (m *Mock) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

func (m *Mock) record(op, target string) {
	m.calls = append(m.calls, op+" "+target)
}

func (m *Mock) Mint(ctx context.Context, target string, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	bal := m.balances[target]
	if bal == nil {
		bal = big.NewInt(0)
	}
	m.balances[target] = new(big.Int).Add(bal, amount)
	m.record("mint", target)
	return nil
}

func (m *Mock) BurnFrom(ctx context.Context, target string, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	allowance := m.allowances[target]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("burn amount exceeds allowance: %w", ErrCallReverted)
	}
	bal := m.balances[target]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("burn amount exceeds balance: %w", ErrCallReverted)
	}
	m.allowances[target] = new(big.Int).Sub(allowance, amount)
	m.balances[target] = new(big.Int).Sub(bal, amount)
	m.record("burn-from", target)
	return nil
}

func (m *Mock) BurnBlacklisted(ctx context.Context, target string, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	if !m.blacklisted[target] {
		return fmt.Errorf("target is not blacklisted: %w", ErrCallReverted)
	}
	bal := m.balances[target]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("burn amount exceeds balance: %w", ErrCallReverted)
	}
	m.balances[target] = new(big.Int).Sub(bal, amount)
	m.record("burn-blacklisted", target)
	return nil
}

func (m *Mock) SetBlacklistStatus(ctx context.Context, target string, blacklisted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	m.blacklisted[target] = blacklisted
	m.record("set-blacklist-status", target)
	return nil
}

func (m *Mock) Freeze(ctx context.Context, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	m.frozen[target] = true
	m.record("freeze", target)
	return nil
}

func (m *Mock) Unfreeze(ctx context.Context, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	m.frozen[target] = false
	m.record("unfreeze", target)
	return nil
}

func (m *Mock) Pause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	m.paused = true
	m.record("pause", "")
	return nil
}

func (m *Mock) Unpause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	m.paused = false
	m.record("unpause", "")
	return nil
}

func (m *Mock) TransferOwnership(ctx context.Context, newOwner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	m.owner = newOwner
	m.record("transfer-ownership", newOwner)
	return nil
}

func (m *Mock) UpdateTokenContract(ctx context.Context, newContract string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return m.callErr
	}
	m.contract = newContract
	m.record("update-token-contract", newContract)
	return nil
}

func (m *Mock) IsBlacklisted(ctx context.Context, address string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blacklisted[address], nil
}

func (m *Mock) IsFrozen(ctx context.Context, address string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frozen[address], nil
}

func (m *Mock) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bal := m.balances[address]
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func (m *Mock) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	allowance := m.allowances[owner]
	if allowance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(allowance), nil
}
