package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"time"
)

// Gateway is the HTTP implementation of Client. The token gateway exposes
// one endpoint per privileged contract call; reverts come back as 422 with
// the revert reason in the body.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGateway creates a token gateway client. If httpClient is nil a
// default with a 30s timeout is used.
func NewGateway(baseURL string, httpClient *http.Client, logger *slog.Logger) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Gateway{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (g *Gateway) Mint(ctx context.Context, target string, amount *big.Int) error {
	return g.call(ctx, "mint", map[string]interface{}{
		"target": target,
		"amount": amount.String(),
	})
}

func (g *Gateway) BurnFrom(ctx context.Context, target string, amount *big.Int) error {
	return g.call(ctx, "burn-from", map[string]interface{}{
		"target": target,
		"amount": amount.String(),
	})
}

func (g *Gateway) BurnBlacklisted(ctx context.Context, target string, amount *big.Int) error {
	return g.call(ctx, "burn-blacklisted", map[string]interface{}{
		"target": target,
		"amount": amount.String(),
	})
}

func (g *Gateway) SetBlacklistStatus(ctx context.Context, target string, blacklisted bool) error {
	return g.call(ctx, "set-blacklist-status", map[string]interface{}{
		"target":      target,
		"blacklisted": blacklisted,
	})
}

func (g *Gateway) Freeze(ctx context.Context, target string) error {
	return g.call(ctx, "freeze", map[string]interface{}{"target": target})
}

func (g *Gateway) Unfreeze(ctx context.Context, target string) error {
	return g.call(ctx, "unfreeze", map[string]interface{}{"target": target})
}

func (g *Gateway) Pause(ctx context.Context) error {
	return g.call(ctx, "pause", nil)
}

func (g *Gateway) Unpause(ctx context.Context) error {
	return g.call(ctx, "unpause", nil)
}

func (g *Gateway) TransferOwnership(ctx context.Context, newOwner string) error {
	return g.call(ctx, "transfer-ownership", map[string]interface{}{"new_owner": newOwner})
}

func (g *Gateway) UpdateTokenContract(ctx context.Context, newContract string) error {
	return g.call(ctx, "update-token-contract", map[string]interface{}{"new_contract": newContract})
}

func (g *Gateway) IsBlacklisted(ctx context.Context, address string) (bool, error) {
	var out struct {
		Blacklisted bool `json:"blacklisted"`
	}
	if err := g.query(ctx, "addresses/"+url.PathEscape(address)+"/blacklisted", &out); err != nil {
		return false, err
	}
	return out.Blacklisted, nil
}

func (g *Gateway) IsFrozen(ctx context.Context, address string) (bool, error) {
	var out struct {
		Frozen bool `json:"frozen"`
	}
	if err := g.query(ctx, "addresses/"+url.PathEscape(address)+"/frozen", &out); err != nil {
		return false, err
	}
	return out.Frozen, nil
}

func (g *Gateway) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	var out struct {
		Balance string `json:"balance"`
	}
	if err := g.query(ctx, "addresses/"+url.PathEscape(address)+"/balance", &out); err != nil {
		return nil, err
	}
	return parseAmount(out.Balance)
}

func (g *Gateway) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	var out struct {
		Allowance string `json:"allowance"`
	}
	if err := g.query(ctx, "addresses/"+url.PathEscape(owner)+"/allowance", &out); err != nil {
		return nil, err
	}
	return parseAmount(out.Allowance)
}

// call POSTs a privileged operation to the gateway.
func (g *Gateway) call(ctx context.Context, op string, body map[string]interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/v1/token/"+op, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token gateway %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		g.logger.Debug("token gateway call succeeded", "op", op)
		return nil
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %s: %w", op, readErrorMessage(resp), ErrCallReverted)
	default:
		return fmt.Errorf("token gateway %s returned status %d: %s", op, resp.StatusCode, readErrorMessage(resp))
	}
}

// query GETs a read-only endpoint and decodes the response into out.
func (g *Gateway) query(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/api/v1/token/"+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token gateway returned status %d: %s", resp.StatusCode, readErrorMessage(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode token gateway response: %w", err)
	}
	return nil
}

// readErrorMessage extracts the error field from a gateway error body.
func readErrorMessage(resp *http.Response) string {
	var errResp struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "unknown error"
	}
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == "" {
		return string(data)
	}
	return errResp.Error
}

// parseAmount parses a base-10 token amount string.
func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token amount %q", s)
	}
	return v, nil
}
