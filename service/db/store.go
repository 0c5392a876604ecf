package db

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gsdc-platform/adminq/service/queue"
)

// Store provides database operations for the service. All state the queue
// owns (pending transactions, redemption requests, the role registry, and
// the pause flag) lives here.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const pendingTransactionColumns = `id, tx_type, status, initiator, target, amount, data,
    rejection_reason, approver, created_at, execute_after`

// rowQuerier is the single-row query surface shared by the pool and a
// pgx.Tx, so inserts can run standalone or inside a store transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreatePendingTransaction inserts a new PENDING transaction and returns
// the stored record with its assigned id.
func (s *Store) CreatePendingTransaction(ctx context.Context, params queue.CreateTransactionParams) (*queue.PendingTransaction, error) {
	return insertPendingTransaction(ctx, s.pool, params)
}

func insertPendingTransaction(ctx context.Context, q rowQuerier, params queue.CreateTransactionParams) (*queue.PendingTransaction, error) {
	query := `INSERT INTO pending_transactions
	    (tx_type, status, initiator, target, amount, data, created_at, execute_after)
	    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	    RETURNING ` + pendingTransactionColumns

	row := q.QueryRow(ctx, query,
		string(params.TxType),
		string(queue.StatusPending),
		params.Initiator,
		params.Target,
		numericFromBig(params.Amount),
		params.Data,
		params.CreatedAt,
		params.ExecuteAfter,
	)

	txn, err := scanPendingTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending transaction: %w", err)
	}
	return txn, nil
}

// GetPendingTransaction retrieves a transaction by id (any status).
func (s *Store) GetPendingTransaction(ctx context.Context, id int64) (*queue.PendingTransaction, error) {
	query := `SELECT ` + pendingTransactionColumns + ` FROM pending_transactions WHERE id = $1`

	txn, err := scanPendingTransaction(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pending transaction %d: %w", id, err)
	}
	return txn, nil
}

// ListTransactions retrieves transactions ordered by id descending.
func (s *Store) ListTransactions(ctx context.Context, params queue.ListTransactionsParams) ([]*queue.PendingTransaction, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + pendingTransactionColumns + ` FROM pending_transactions`
	args := []interface{}{}
	if params.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, params.Status)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT %d OFFSET %d`, limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]*queue.PendingTransaction, 0)
	for rows.Next() {
		txn, err := scanPendingTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return txns, nil
}

// ListPendingTransactionIDs returns the ids of all currently PENDING
// transactions, oldest first.
func (s *Store) ListPendingTransactionIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT id FROM pending_transactions WHERE status = 'PENDING' ORDER BY id`
	return s.listIDs(ctx, query)
}

// ListDueTransactionIDs returns the ids of PENDING transactions whose
// cooldown has elapsed as of now, oldest first.
func (s *Store) ListDueTransactionIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `SELECT id FROM pending_transactions
	    WHERE status = 'PENDING' AND execute_after <= $1 ORDER BY id`
	return s.listIDs(ctx, query, now)
}

func (s *Store) listIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return ids, nil
}

// Claim pins a PENDING transaction for a terminal transition. The row is
// locked FOR UPDATE inside a database transaction, which serializes
// concurrent approve/reject/execute attempts on the same id: the second
// claimant blocks until the first commits, then observes the terminal
// status and fails with ErrNotPending. The caller must call exactly one of
// Finish or Release.
func (s *Store) Claim(ctx context.Context, id int64) (queue.Claim, error) {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `SELECT ` + pendingTransactionColumns + ` FROM pending_transactions
	    WHERE id = $1 FOR UPDATE`

	txn, err := scanPendingTransaction(dbTx.QueryRow(ctx, query, id))
	if err != nil {
		_ = dbTx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrNotFound
		}
		return nil, fmt.Errorf("failed to claim transaction %d: %w", id, err)
	}

	if txn.Status != queue.StatusPending {
		_ = dbTx.Rollback(ctx)
		return nil, fmt.Errorf("transaction %d has status %s: %w", id, txn.Status, queue.ErrNotPending)
	}

	return &Claim{dbTx: dbTx, txn: txn}, nil
}

// Claim holds a row lock on a PENDING transaction while the dispatch step
// runs. Finishing commits the terminal status; releasing rolls back and
// leaves the transaction PENDING.
type Claim struct {
	dbTx pgx.Tx
	txn  *queue.PendingTransaction
	done bool
}

// Transaction returns the claimed transaction as read under the row lock.
func (c *Claim) Transaction() *queue.PendingTransaction {
	return c.txn
}

// Finish records the terminal status and commits. The approver argument is
// empty for auto-execution; reason is set only for rejections.
func (c *Claim) Finish(ctx context.Context, status queue.Status, approver, reason string) error {
	if c.done {
		return fmt.Errorf("claim already finished")
	}
	c.done = true

	query := `UPDATE pending_transactions
	    SET status = $1, approver = $2, rejection_reason = $3
	    WHERE id = $4 AND status = 'PENDING'`

	tag, err := c.dbTx.Exec(ctx, query, string(status), approver, reason, c.txn.ID)
	if err != nil {
		_ = c.dbTx.Rollback(ctx)
		return fmt.Errorf("failed to finish transaction %d: %w", c.txn.ID, err)
	}
	if tag.RowsAffected() != 1 {
		// Unreachable while the row lock is held; guard anyway.
		_ = c.dbTx.Rollback(ctx)
		return queue.ErrNotPending
	}

	if err := c.dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transition for transaction %d: %w", c.txn.ID, err)
	}

	c.txn.Status = status
	c.txn.Approver = approver
	c.txn.RejectionReason = reason
	return nil
}

// Release abandons the claim, leaving the transaction PENDING.
func (c *Claim) Release(ctx context.Context) {
	if c.done {
		return
	}
	c.done = true
	_ = c.dbTx.Rollback(ctx)
}

// GrantRole adds a role to an address. Granting an already-held role is a
// no-op.
func (s *Store) GrantRole(ctx context.Context, role queue.Role, address string) error {
	query := `INSERT INTO address_roles (address, role) VALUES ($1, $2)
	    ON CONFLICT (address, role) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, address, string(role)); err != nil {
		return fmt.Errorf("failed to grant role %s to %s: %w", role, address, err)
	}
	return nil
}

// RevokeRole removes a role from an address. Revoking an unheld role is a
// no-op.
func (s *Store) RevokeRole(ctx context.Context, role queue.Role, address string) error {
	query := `DELETE FROM address_roles WHERE address = $1 AND role = $2`
	if _, err := s.pool.Exec(ctx, query, address, string(role)); err != nil {
		return fmt.Errorf("failed to revoke role %s from %s: %w", role, address, err)
	}
	return nil
}

// HasRole reports whether the address holds the role.
func (s *Store) HasRole(ctx context.Context, role queue.Role, address string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM address_roles WHERE address = $1 AND role = $2)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, address, string(role)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check role %s for %s: %w", role, address, err)
	}
	return exists, nil
}

// CountRoleHolders returns how many addresses hold the role.
func (s *Store) CountRoleHolders(ctx context.Context, role queue.Role) (int64, error) {
	query := `SELECT COUNT(*) FROM address_roles WHERE role = $1`
	var count int64
	if err := s.pool.QueryRow(ctx, query, string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count holders of role %s: %w", role, err)
	}
	return count, nil
}

// ListRoles returns the roles held by an address.
func (s *Store) ListRoles(ctx context.Context, address string) ([]queue.Role, error) {
	query := `SELECT role FROM address_roles WHERE address = $1 ORDER BY role`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles for %s: %w", address, err)
	}
	defer rows.Close()

	roles := make([]queue.Role, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, queue.Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return roles, nil
}

// ListRoleHolders returns the addresses holding a role.
func (s *Store) ListRoleHolders(ctx context.Context, role queue.Role) ([]string, error) {
	query := `SELECT address FROM address_roles WHERE role = $1 ORDER BY address`

	rows, err := s.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list holders of role %s: %w", role, err)
	}
	defer rows.Close()

	addrs := make([]string, 0)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addrs = append(addrs, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return addrs, nil
}

const redemptionColumns = `id, user_address, amount, processed, approved, burn_tx_id,
    processed_by, created_at, processed_at`

// CreateRedemptionRequest records a user's redemption intent.
func (s *Store) CreateRedemptionRequest(ctx context.Context, user string, amount *big.Int) (*queue.RedemptionRequest, error) {
	query := `INSERT INTO redemption_requests (user_address, amount)
	    VALUES ($1, $2)
	    RETURNING ` + redemptionColumns

	req, err := scanRedemptionRequest(s.pool.QueryRow(ctx, query, user, numericFromBig(amount)))
	if err != nil {
		return nil, fmt.Errorf("failed to create redemption request: %w", err)
	}
	return req, nil
}

// GetRedemptionRequest retrieves a redemption request by id.
func (s *Store) GetRedemptionRequest(ctx context.Context, id int64) (*queue.RedemptionRequest, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemption_requests WHERE id = $1`

	req, err := scanRedemptionRequest(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get redemption request %d: %w", id, err)
	}
	return req, nil
}

// ListRedemptionRequests returns redemption requests, optionally filtered
// by processed state, newest first.
func (s *Store) ListRedemptionRequests(ctx context.Context, processed *bool) ([]*queue.RedemptionRequest, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemption_requests`
	args := []interface{}{}
	if processed != nil {
		query += ` WHERE processed = $1`
		args = append(args, *processed)
	}
	query += ` ORDER BY id DESC LIMIT 100`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemption requests: %w", err)
	}
	defer rows.Close()

	reqs := make([]*queue.RedemptionRequest, 0)
	for rows.Next() {
		req, err := scanRedemptionRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return reqs, nil
}

// MarkRedemptionProcessed atomically flips an unprocessed request to
// processed. The WHERE processed = FALSE guard prevents a double decision:
// a concurrent processor finds zero rows and gets ErrAlreadyProcessed.
func (s *Store) MarkRedemptionProcessed(ctx context.Context, id int64, approved bool, admin string) (*queue.RedemptionRequest, error) {
	query := `UPDATE redemption_requests
	    SET processed = TRUE, approved = $1, processed_by = $2, processed_at = now()
	    WHERE id = $3 AND processed = FALSE
	    RETURNING ` + redemptionColumns

	req, err := scanRedemptionRequest(s.pool.QueryRow(ctx, query, approved, admin, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the id is wrong or the decision was already made.
			if _, getErr := s.GetRedemptionRequest(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, queue.ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("failed to process redemption request %d: %w", id, err)
	}
	return req, nil
}

// ApproveRedemption flips an unprocessed request to approved and inserts
// its BURN transaction in one database transaction. A failed insert rolls
// the decision back, leaving the request unprocessed and retryable; the
// processed = FALSE guard still rejects a concurrent second decision.
func (s *Store) ApproveRedemption(ctx context.Context, id int64, admin string, burn queue.CreateTransactionParams) (*queue.RedemptionRequest, *queue.PendingTransaction, error) {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	markQuery := `UPDATE redemption_requests
	    SET processed = TRUE, approved = TRUE, processed_by = $1, processed_at = now()
	    WHERE id = $2 AND processed = FALSE
	    RETURNING ` + redemptionColumns

	req, err := scanRedemptionRequest(dbTx.QueryRow(ctx, markQuery, admin, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.GetRedemptionRequest(ctx, id); getErr != nil {
				return nil, nil, getErr
			}
			return nil, nil, queue.ErrAlreadyProcessed
		}
		return nil, nil, fmt.Errorf("failed to process redemption request %d: %w", id, err)
	}

	txn, err := insertPendingTransaction(ctx, dbTx, burn)
	if err != nil {
		return nil, nil, err
	}

	linkQuery := `UPDATE redemption_requests SET burn_tx_id = $1 WHERE id = $2`
	if _, err := dbTx.Exec(ctx, linkQuery, txn.ID, id); err != nil {
		return nil, nil, fmt.Errorf("failed to link redemption %d to burn transaction %d: %w", id, txn.ID, err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit approval of redemption %d: %w", id, err)
	}

	req.BurnTxID = &txn.ID
	return req, txn, nil
}

// IsQueuePaused returns the emergency pause flag.
func (s *Store) IsQueuePaused(ctx context.Context) (bool, error) {
	var paused bool
	if err := s.pool.QueryRow(ctx, `SELECT paused FROM queue_state WHERE id`).Scan(&paused); err != nil {
		return false, fmt.Errorf("failed to read queue pause state: %w", err)
	}
	return paused, nil
}

// SetQueuePaused sets the emergency pause flag.
func (s *Store) SetQueuePaused(ctx context.Context, paused bool) error {
	query := `UPDATE queue_state SET paused = $1, updated_at = now() WHERE id`
	if _, err := s.pool.Exec(ctx, query, paused); err != nil {
		return fmt.Errorf("failed to set queue pause state: %w", err)
	}
	return nil
}

// scanPendingTransaction reads one pending_transactions row.
func scanPendingTransaction(row pgx.Row) (*queue.PendingTransaction, error) {
	var (
		txn    queue.PendingTransaction
		txType string
		status string
		amount pgtype.Numeric
	)

	err := row.Scan(
		&txn.ID,
		&txType,
		&status,
		&txn.Initiator,
		&txn.Target,
		&amount,
		&txn.Data,
		&txn.RejectionReason,
		&txn.Approver,
		&txn.CreatedAt,
		&txn.ExecuteAfter,
	)
	if err != nil {
		return nil, err
	}

	txn.TxType = queue.TxType(txType)
	txn.Status = queue.Status(status)
	txn.Amount, err = bigFromNumeric(amount)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// scanRedemptionRequest reads one redemption_requests row.
func scanRedemptionRequest(row pgx.Row) (*queue.RedemptionRequest, error) {
	var (
		req         queue.RedemptionRequest
		amount      pgtype.Numeric
		burnTxID    pgtype.Int8
		processedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&req.ID,
		&req.User,
		&amount,
		&req.Processed,
		&req.Approved,
		&burnTxID,
		&req.ProcessedBy,
		&req.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Amount, err = bigFromNumeric(amount)
	if err != nil {
		return nil, err
	}
	if burnTxID.Valid {
		v := burnTxID.Int64
		req.BurnTxID = &v
	}
	if processedAt.Valid {
		t := processedAt.Time
		req.ProcessedAt = &t
	}
	return &req, nil
}

// numericFromBig converts a token amount to the NUMERIC(78,0) column type.
// Nil is stored as zero.
func numericFromBig(v *big.Int) pgtype.Numeric {
	if v == nil {
		v = big.NewInt(0)
	}
	return pgtype.Numeric{Int: new(big.Int).Set(v), Exp: 0, Valid: true}
}

// bigFromNumeric converts a NUMERIC(78,0) column value back to a big.Int.
// Amounts are written with exponent zero; a fractional value means the row
// was not written by this service.
func bigFromNumeric(n pgtype.Numeric) (*big.Int, error) {
	if !n.Valid || n.Int == nil {
		return big.NewInt(0), nil
	}
	v := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		return nil, fmt.Errorf("fractional token amount in store: %v", n)
	}
	return v, nil
}
