package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gsdc-platform/adminq/service/queue"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for transaction intents
)

var (
	// EVM address: 0x followed by 40 hex characters.
	validAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// handleQueueTransaction returns a handler that queues a new transaction.
// POST /api/v1/transactions
func handleQueueTransaction(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			TxType    string `json:"tx_type"`
			Initiator string `json:"initiator"`
			Target    string `json:"target"`
			Amount    string `json:"amount"`
			Data      string `json:"data"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode queue request", "error", err)
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		txType, err := queue.ParseTxType(req.TxType)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.Initiator); err != nil {
			writeError(w, fmt.Sprintf("initiator: %v", err), http.StatusBadRequest)
			return
		}
		if req.Target != "" {
			if err := validateAddress(req.Target); err != nil {
				writeError(w, fmt.Sprintf("target: %v", err), http.StatusBadRequest)
				return
			}
		}

		amount, err := parseAmount(req.Amount)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		txn, err := svc.Queue(r.Context(), queue.QueueParams{
			TxType:    txType,
			Initiator: req.Initiator,
			Target:    req.Target,
			Amount:    amount,
			Data:      req.Data,
		})
		if err != nil {
			writeServiceError(w, logger, "failed to queue transaction", err)
			return
		}

		writeJSON(w, transactionToResponse(txn), http.StatusCreated)
	})
}

// handleListTransactions returns a handler that lists transactions.
// GET /api/v1/transactions?status={status}&limit={n}&offset={n}
func handleListTransactions(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status != "" {
			switch queue.Status(status) {
			case queue.StatusPending, queue.StatusRejected, queue.StatusExecuted, queue.StatusAutoExecuted:
			default:
				writeError(w, fmt.Sprintf("unknown status %q", status), http.StatusBadRequest)
				return
			}
		}

		limit := parseIntQuery(r, "limit", 100)
		offset := parseIntQuery(r, "offset", 0)

		txns, err := svc.ListTransactions(r.Context(), queue.ListTransactionsParams{
			Status: status,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			writeServiceError(w, logger, "failed to list transactions", err)
			return
		}

		resp := make([]transactionResponse, len(txns))
		for i, txn := range txns {
			resp[i] = transactionToResponse(txn)
		}

		writeJSON(w, map[string]interface{}{
			"transactions": resp,
		}, http.StatusOK)
	})
}

// handleListPendingIDs returns a handler that lists PENDING transaction ids.
// GET /api/v1/transactions/pending
func handleListPendingIDs(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids, err := svc.ListPendingIDs(r.Context())
		if err != nil {
			writeServiceError(w, logger, "failed to list pending transactions", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"ids": ids,
		}, http.StatusOK)
	})
}

// handleGetTransaction returns a handler that retrieves one transaction.
// GET /api/v1/transactions/{id}
func handleGetTransaction(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		txn, err := svc.GetTransaction(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, "failed to get transaction", err)
			return
		}

		writeJSON(w, transactionToResponse(txn), http.StatusOK)
	})
}

// handleApproveTransaction returns a handler that approves and executes a
// PENDING transaction.
// POST /api/v1/transactions/{id}/approve
func handleApproveTransaction(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		var req struct {
			Approver string `json:"approver"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.Approver); err != nil {
			writeError(w, fmt.Sprintf("approver: %v", err), http.StatusBadRequest)
			return
		}

		txn, err := svc.Approve(r.Context(), id, req.Approver)
		if err != nil {
			writeServiceError(w, logger, "failed to approve transaction", err)
			return
		}

		writeJSON(w, transactionToResponse(txn), http.StatusOK)
	})
}

// handleRejectTransaction returns a handler that rejects a PENDING
// transaction with a reason.
// POST /api/v1/transactions/{id}/reject
func handleRejectTransaction(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		var req struct {
			Approver string `json:"approver"`
			Reason   string `json:"reason"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.Approver); err != nil {
			writeError(w, fmt.Sprintf("approver: %v", err), http.StatusBadRequest)
			return
		}

		txn, err := svc.Reject(r.Context(), id, req.Approver, req.Reason)
		if err != nil {
			writeServiceError(w, logger, "failed to reject transaction", err)
			return
		}

		writeJSON(w, transactionToResponse(txn), http.StatusOK)
	})
}

// handleExecuteTransaction returns a handler that auto-executes a
// transaction whose cooldown has elapsed. Callable by anyone.
// POST /api/v1/transactions/{id}/execute
func handleExecuteTransaction(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		txn, err := svc.Execute(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, "failed to execute transaction", err)
			return
		}

		writeJSON(w, transactionToResponse(txn), http.StatusOK)
	})
}

// handleRequestRedemption returns a handler that records a user's
// redemption request.
// POST /api/v1/redemptions
func handleRequestRedemption(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			User   string `json:"user"`
			Amount string `json:"amount"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.User); err != nil {
			writeError(w, fmt.Sprintf("user: %v", err), http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		redemption, err := svc.RequestRedemption(r.Context(), req.User, amount)
		if err != nil {
			writeServiceError(w, logger, "failed to request redemption", err)
			return
		}

		writeJSON(w, redemptionToResponse(redemption), http.StatusCreated)
	})
}

// handleListRedemptions returns a handler that lists redemption requests.
// GET /api/v1/redemptions?processed={true|false}
func handleListRedemptions(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var processed *bool
		if v := r.URL.Query().Get("processed"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, fmt.Sprintf("invalid processed filter %q", v), http.StatusBadRequest)
				return
			}
			processed = &b
		}

		reqs, err := svc.ListRedemptionRequests(r.Context(), processed)
		if err != nil {
			writeServiceError(w, logger, "failed to list redemptions", err)
			return
		}

		resp := make([]redemptionResponse, len(reqs))
		for i, req := range reqs {
			resp[i] = redemptionToResponse(req)
		}

		writeJSON(w, map[string]interface{}{
			"redemptions": resp,
		}, http.StatusOK)
	})
}

// handleGetRedemption returns a handler that retrieves one redemption
// request.
// GET /api/v1/redemptions/{id}
func handleGetRedemption(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		redemption, err := svc.GetRedemptionRequest(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, "failed to get redemption", err)
			return
		}

		writeJSON(w, redemptionToResponse(redemption), http.StatusOK)
	})
}

// handleProcessRedemption returns a handler that decides a redemption
// request. Approval enqueues a BURN through the normal queue.
// POST /api/v1/redemptions/{id}/process
func handleProcessRedemption(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		var req struct {
			Approve bool   `json:"approve"`
			Admin   string `json:"admin"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.Admin); err != nil {
			writeError(w, fmt.Sprintf("admin: %v", err), http.StatusBadRequest)
			return
		}

		redemption, err := svc.ProcessRedemption(r.Context(), id, req.Approve, req.Admin)
		if err != nil {
			writeServiceError(w, logger, "failed to process redemption", err)
			return
		}

		writeJSON(w, redemptionToResponse(redemption), http.StatusOK)
	})
}

// handleAddressStatus returns a handler that reports the token and role
// state of an address.
// GET /api/v1/addresses/{address}/status
func handleAddressStatus(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		blacklisted, err := svc.IsBlacklisted(r.Context(), address)
		if err != nil {
			writeServiceError(w, logger, "failed to check blacklist status", err)
			return
		}
		frozen, err := svc.IsFrozen(r.Context(), address)
		if err != nil {
			writeServiceError(w, logger, "failed to check freeze status", err)
			return
		}
		roles, err := svc.RolesOf(r.Context(), address)
		if err != nil {
			writeServiceError(w, logger, "failed to list roles", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address":     address,
			"blacklisted": blacklisted,
			"frozen":      frozen,
			"roles":       roles,
		}, http.StatusOK)
	})
}

// handleQueueConfig returns a handler that reports the queue configuration.
// GET /api/v1/queue/config
func handleQueueConfig(svc *queue.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paused, err := svc.Paused(r.Context())
		if err != nil {
			writeServiceError(w, logger, "failed to read pause state", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"cooldown_period":    svc.CooldownPeriod().String(),
			"required_approvals": svc.RequiredApprovals(),
			"paused":             paused,
		}, http.StatusOK)
	})
}

// handleSetQueuePause returns a handler that sets or clears the emergency
// pause flag.
// POST /api/v1/queue/pause and POST /api/v1/queue/unpause
func handleSetQueuePause(svc *queue.Service, logger *slog.Logger, pause bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Admin string `json:"admin"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.Admin); err != nil {
			writeError(w, fmt.Sprintf("admin: %v", err), http.StatusBadRequest)
			return
		}

		var err error
		if pause {
			err = svc.Pause(r.Context(), req.Admin)
		} else {
			err = svc.Unpause(r.Context(), req.Admin)
		}
		if err != nil {
			writeServiceError(w, logger, "failed to change pause state", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"paused": pause,
		}, http.StatusOK)
	})
}

// transactionResponse is the wire form of a pending transaction. Amount is
// a base-10 string since token amounts exceed int64.
type transactionResponse struct {
	ID              int64     `json:"id"`
	TxType          string    `json:"tx_type"`
	Status          string    `json:"status"`
	Initiator       string    `json:"initiator"`
	Target          string    `json:"target,omitempty"`
	Amount          string    `json:"amount"`
	Data            string    `json:"data,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	Approver        string    `json:"approver,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExecuteAfter    time.Time `json:"execute_after"`
}

func transactionToResponse(txn *queue.PendingTransaction) transactionResponse {
	resp := transactionResponse{
		ID:              txn.ID,
		TxType:          string(txn.TxType),
		Status:          string(txn.Status),
		Initiator:       txn.Initiator,
		Target:          txn.Target,
		Amount:          "0",
		Data:            txn.Data,
		RejectionReason: txn.RejectionReason,
		Approver:        txn.Approver,
		CreatedAt:       txn.CreatedAt,
		ExecuteAfter:    txn.ExecuteAfter,
	}
	if txn.Amount != nil {
		resp.Amount = txn.Amount.String()
	}
	return resp
}

// redemptionResponse is the wire form of a redemption request.
type redemptionResponse struct {
	ID          int64      `json:"id"`
	User        string     `json:"user"`
	Amount      string     `json:"amount"`
	Processed   bool       `json:"processed"`
	Approved    bool       `json:"approved"`
	BurnTxID    *int64     `json:"burn_tx_id,omitempty"`
	ProcessedBy string     `json:"processed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func redemptionToResponse(req *queue.RedemptionRequest) redemptionResponse {
	resp := redemptionResponse{
		ID:          req.ID,
		User:        req.User,
		Amount:      "0",
		Processed:   req.Processed,
		Approved:    req.Approved,
		BurnTxID:    req.BurnTxID,
		ProcessedBy: req.ProcessedBy,
		CreatedAt:   req.CreatedAt,
		ProcessedAt: req.ProcessedAt,
	}
	if req.Amount != nil {
		resp.Amount = req.Amount.String()
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeServiceError maps service errors onto HTTP status codes. The error
// message is surfaced so the UI can explain the failure to the operator.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
		writeError(w, "internal server error", status)
		return
	}
	logger.Debug(msg, "error", err)
	writeError(w, err.Error(), status)
}

func statusForError(err error) int {
	var dispatchErr *queue.DispatchError
	switch {
	case errors.Is(err, queue.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrNotPending),
		errors.Is(err, queue.ErrAlreadyProcessed),
		errors.Is(err, queue.ErrCooldownActive),
		errors.Is(err, queue.ErrQueuePaused):
		return http.StatusConflict
	case errors.Is(err, queue.ErrProtectedAddress),
		errors.Is(err, queue.ErrApproverFloor),
		errors.Is(err, queue.ErrZeroAddress),
		errors.Is(err, queue.ErrEmptyReason),
		errors.Is(err, queue.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.As(err, &dispatchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body with a size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if strings.Contains(err.Error(), "http: request body too large") {
			return fmt.Errorf("request body too large: maximum size is 1MB")
		}
		return fmt.Errorf("invalid request body: must be valid JSON")
	}
	return nil
}

// validateAddress validates an EVM address.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	if !validAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format: must be 0x followed by 40 hex characters")
	}
	return nil
}

// parseAmount parses a base-10 token amount; empty means zero.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q: must be a base-10 integer", s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q: must not be negative", s)
	}
	return amount, nil
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseIntQuery reads a non-negative int32 query parameter with a
// default. Malformed or out-of-range values fall back to the default
// rather than silently truncating.
func parseIntQuery(r *http.Request, key string, def int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		return def
	}
	return int32(v)
}
