// Package client provides a Go client for the adminq HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Transaction is a queued administrative transaction as returned by the
// API. Amount is a base-10 string since token amounts exceed int64.
type Transaction struct {
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

// Redemption is a redemption request as returned by the API.
type Redemption struct {
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

// AddressStatus reports the token and role state of an address.
type AddressStatus struct {
	Address     string   `json:"address"`
	Blacklisted bool     `json:"blacklisted"`
	Frozen      bool     `json:"frozen"`
	Roles       []string `json:"roles"`
}

// QueueConfig reports the queue configuration.
type QueueConfig struct {
	CooldownPeriod    string `json:"cooldown_period"`
	RequiredApprovals int64  `json:"required_approvals"`
	Paused            bool   `json:"paused"`
}

// QueueTransactionParams describes a transaction to queue.
type QueueTransactionParams struct {
	TxType    string `json:"tx_type"`
	Initiator string `json:"initiator"`
	Target    string `json:"target,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Data      string `json:"data,omitempty"`
}

// Client is the HTTP client for the adminq service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new adminq service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// QueueTransaction queues a new administrative transaction.
func (c *Client) QueueTransaction(ctx context.Context, params QueueTransactionParams) (*Transaction, error) {
	var txn Transaction
	if err := c.post(ctx, "/api/v1/transactions", params, http.StatusCreated, &txn); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction queued", "tx_id", txn.ID, "tx_type", txn.TxType)
	return &txn, nil
}

// GetTransaction retrieves a transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	var txn Transaction
	if err := c.get(ctx, fmt.Sprintf("/api/v1/transactions/%d", id), &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListTransactions retrieves transactions, optionally filtered by status.
func (c *Client) ListTransactions(ctx context.Context, status string, limit, offset int) ([]*Transaction, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}
	path := "/api/v1/transactions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var response struct {
		Transactions []*Transaction `json:"transactions"`
	}
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Transactions, nil
}

// ListPendingIDs retrieves the ids of all PENDING transactions.
func (c *Client) ListPendingIDs(ctx context.Context) ([]int64, error) {
	var response struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.get(ctx, "/api/v1/transactions/pending", &response); err != nil {
		return nil, err
	}
	return response.IDs, nil
}

// Approve approves and immediately executes a PENDING transaction.
func (c *Client) Approve(ctx context.Context, id int64, approver string) (*Transaction, error) {
	body := map[string]string{"approver": approver}
	var txn Transaction
	if err := c.post(ctx, fmt.Sprintf("/api/v1/transactions/%d/approve", id), body, http.StatusOK, &txn); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction approved", "tx_id", id, "approver", approver)
	return &txn, nil
}

// Reject rejects a PENDING transaction with a reason.
func (c *Client) Reject(ctx context.Context, id int64, approver, reason string) (*Transaction, error) {
	body := map[string]string{"approver": approver, "reason": reason}
	var txn Transaction
	if err := c.post(ctx, fmt.Sprintf("/api/v1/transactions/%d/reject", id), body, http.StatusOK, &txn); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction rejected", "tx_id", id, "approver", approver)
	return &txn, nil
}

// Execute auto-executes a transaction whose cooldown has elapsed.
func (c *Client) Execute(ctx context.Context, id int64) (*Transaction, error) {
	var txn Transaction
	if err := c.post(ctx, fmt.Sprintf("/api/v1/transactions/%d/execute", id), struct{}{}, http.StatusOK, &txn); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction executed", "tx_id", id)
	return &txn, nil
}

// RequestRedemption records a user's redemption request.
func (c *Client) RequestRedemption(ctx context.Context, user, amount string) (*Redemption, error) {
	body := map[string]string{"user": user, "amount": amount}
	var redemption Redemption
	if err := c.post(ctx, "/api/v1/redemptions", body, http.StatusCreated, &redemption); err != nil {
		return nil, err
	}
	c.logger.Debug("redemption requested", "request_id", redemption.ID, "user", user)
	return &redemption, nil
}

// GetRedemption retrieves a redemption request by id.
func (c *Client) GetRedemption(ctx context.Context, id int64) (*Redemption, error) {
	var redemption Redemption
	if err := c.get(ctx, fmt.Sprintf("/api/v1/redemptions/%d", id), &redemption); err != nil {
		return nil, err
	}
	return &redemption, nil
}

// ListRedemptions retrieves redemption requests. Pass nil for processed to
// list all.
func (c *Client) ListRedemptions(ctx context.Context, processed *bool) ([]*Redemption, error) {
	path := "/api/v1/redemptions"
	if processed != nil {
		path += fmt.Sprintf("?processed=%t", *processed)
	}

	var response struct {
		Redemptions []*Redemption `json:"redemptions"`
	}
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Redemptions, nil
}

// ProcessRedemption decides a redemption request.
func (c *Client) ProcessRedemption(ctx context.Context, id int64, approve bool, admin string) (*Redemption, error) {
	body := map[string]interface{}{"approve": approve, "admin": admin}
	var redemption Redemption
	if err := c.post(ctx, fmt.Sprintf("/api/v1/redemptions/%d/process", id), body, http.StatusOK, &redemption); err != nil {
		return nil, err
	}
	c.logger.Debug("redemption processed", "request_id", id, "approved", approve)
	return &redemption, nil
}

// GetAddressStatus reports the token and role state of an address.
func (c *Client) GetAddressStatus(ctx context.Context, address string) (*AddressStatus, error) {
	var status AddressStatus
	if err := c.get(ctx, fmt.Sprintf("/api/v1/addresses/%s/status", url.PathEscape(address)), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetQueueConfig reports the queue configuration.
func (c *Client) GetQueueConfig(ctx context.Context) (*QueueConfig, error) {
	var cfg QueueConfig
	if err := c.get(ctx, "/api/v1/queue/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PauseQueue sets the emergency pause flag.
func (c *Client) PauseQueue(ctx context.Context, admin string) error {
	body := map[string]string{"admin": admin}
	return c.post(ctx, "/api/v1/queue/pause", body, http.StatusOK, nil)
}

// UnpauseQueue clears the emergency pause flag.
func (c *Client) UnpauseQueue(ctx context.Context, admin string) error {
	body := map[string]string{"admin": admin}
	return c.post(ctx, "/api/v1/queue/unpause", body, http.StatusOK, nil)
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, wantStatus int, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseErrorResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
