package queue

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation for testing.
type MemoryStore struct {
	mu sync.Mutex

	nextTxID         int64
	txns             map[int64]*PendingTransaction
	roles            map[Role]map[string]bool
	nextRedemptionID int64
	redemptions      map[int64]*RedemptionRequest
	paused           bool

	// failWith, when set, is returned by every subsequent call.
	failWith error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txns:        make(map[int64]*PendingTransaction),
		roles:       make(map[Role]map[string]bool),
		redemptions: make(map[int64]*RedemptionRequest),
	}
}

// SetFailure makes every subsequent store call return err. Pass nil to
// restore normal operation.
func (m *MemoryStore) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryStore) CreatePendingTransaction(ctx context.Context, params CreateTransactionParams) (*PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	m.nextTxID++
	txn := &PendingTransaction{
		ID:           m.nextTxID,
		TxType:       params.TxType,
		Status:       StatusPending,
		Initiator:    params.Initiator,
		Target:       params.Target,
		Amount:       params.Amount,
		Data:         params.Data,
		CreatedAt:    params.CreatedAt,
		ExecuteAfter: params.ExecuteAfter,
	}
	m.txns[txn.ID] = txn
	return txn, nil
}

func (m *MemoryStore) GetPendingTransaction(ctx context.Context, id int64) (*PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	txn, ok := m.txns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return txn, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, params ListTransactionsParams) ([]*PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var out []*PendingTransaction
	for id := int64(1); id <= m.nextTxID; id++ {
		txn, ok := m.txns[id]
		if !ok {
			continue
		}
		if params.Status != "" && string(txn.Status) != params.Status {
			continue
		}
		out = append(out, txn)
	}
	if params.Offset > 0 {
		if int(params.Offset) >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && int(params.Limit) < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (m *MemoryStore) ListPendingTransactionIDs(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var ids []int64
	for id := int64(1); id <= m.nextTxID; id++ {
		if txn, ok := m.txns[id]; ok && txn.Status == StatusPending {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) ListDueTransactionIDs(ctx context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var ids []int64
	for id := int64(1); id <= m.nextTxID; id++ {
		if txn, ok := m.txns[id]; ok && txn.Status == StatusPending && txn.Due(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) Claim(ctx context.Context, id int64) (Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	txn, ok := m.txns[id]
	if !ok {
		return nil, ErrNotFound
	}
	if txn.Status != StatusPending {
		return nil, fmt.Errorf("transaction %d has status %s: %w", id, txn.Status, ErrNotPending)
	}
	return &memoryClaim{store: m, txn: txn}, nil
}

type memoryClaim struct {
	store *MemoryStore
	txn   *PendingTransaction
	done  bool
}

func (c *memoryClaim) Transaction() *PendingTransaction {
	return c.txn
}

func (c *memoryClaim) Finish(ctx context.Context, status Status, approver, reason string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.done {
		return fmt.Errorf("claim already finished")
	}
	c.done = true
	if c.store.failWith != nil {
		return c.store.failWith
	}
	if c.txn.Status != StatusPending {
		return fmt.Errorf("transaction %d has status %s: %w", c.txn.ID, c.txn.Status, ErrNotPending)
	}

	c.txn.Status = status
	c.txn.Approver = approver
	c.txn.RejectionReason = reason
	return nil
}

func (c *memoryClaim) Release(ctx context.Context) {
	c.done = true
}

func (m *MemoryStore) GrantRole(ctx context.Context, role Role, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if m.roles[role] == nil {
		m.roles[role] = make(map[string]bool)
	}
	m.roles[role][address] = true
	return nil
}

func (m *MemoryStore) RevokeRole(ctx context.Context, role Role, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	delete(m.roles[role], address)
	return nil
}

func (m *MemoryStore) HasRole(ctx context.Context, role Role, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	return m.roles[role][address], nil
}

func (m *MemoryStore) CountRoleHolders(ctx context.Context, role Role) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}

	return int64(len(m.roles[role])), nil
}

func (m *MemoryStore) ListRoles(ctx context.Context, address string) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var roles []Role
	for _, role := range AllRoles {
		if m.roles[role][address] {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (m *MemoryStore) ListRoleHolders(ctx context.Context, role Role) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var holders []string
	for addr := range m.roles[role] {
		holders = append(holders, addr)
	}
	return holders, nil
}

func (m *MemoryStore) CreateRedemptionRequest(ctx context.Context, user string, amount *big.Int) (*RedemptionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	m.nextRedemptionID++
	req := &RedemptionRequest{
		ID:        m.nextRedemptionID,
		User:      user,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	m.redemptions[req.ID] = req
	return req, nil
}

func (m *MemoryStore) GetRedemptionRequest(ctx context.Context, id int64) (*RedemptionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	req, ok := m.redemptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req, nil
}

func (m *MemoryStore) ListRedemptionRequests(ctx context.Context, processed *bool) ([]*RedemptionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var out []*RedemptionRequest
	for id := int64(1); id <= m.nextRedemptionID; id++ {
		req, ok := m.redemptions[id]
		if !ok {
			continue
		}
		if processed != nil && req.Processed != *processed {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (m *MemoryStore) MarkRedemptionProcessed(ctx context.Context, id int64, approved bool, admin string) (*RedemptionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	req, ok := m.redemptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Processed {
		return nil, fmt.Errorf("redemption %d: %w", id, ErrAlreadyProcessed)
	}
	now := time.Now().UTC()
	req.Processed = true
	req.Approved = approved
	req.ProcessedBy = admin
	req.ProcessedAt = &now
	return req, nil
}

func (m *MemoryStore) ApproveRedemption(ctx context.Context, id int64, admin string, burn CreateTransactionParams) (*RedemptionRequest, *PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, nil, m.failWith
	}

	req, ok := m.redemptions[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if req.Processed {
		return nil, nil, fmt.Errorf("redemption %d: %w", id, ErrAlreadyProcessed)
	}

	m.nextTxID++
	txn := &PendingTransaction{
		ID:           m.nextTxID,
		TxType:       burn.TxType,
		Status:       StatusPending,
		Initiator:    burn.Initiator,
		Target:       burn.Target,
		Amount:       burn.Amount,
		Data:         burn.Data,
		CreatedAt:    burn.CreatedAt,
		ExecuteAfter: burn.ExecuteAfter,
	}
	m.txns[txn.ID] = txn

	now := time.Now().UTC()
	req.Processed = true
	req.Approved = true
	req.ProcessedBy = admin
	req.ProcessedAt = &now
	req.BurnTxID = &txn.ID
	return req, txn, nil
}

func (m *MemoryStore) IsQueuePaused(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}

	return m.paused, nil
}

func (m *MemoryStore) SetQueuePaused(ctx context.Context, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	m.paused = paused
	return nil
}
