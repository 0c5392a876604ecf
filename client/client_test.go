package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueTransaction_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, "MINT", body["tx_type"])
		assert.Equal(t, "0x00000000000000000000000000000000000000b1", body["initiator"])
		assert.Equal(t, "500", body["amount"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            7,
			"tx_type":       "MINT",
			"status":        "PENDING",
			"initiator":     body["initiator"],
			"target":        body["target"],
			"amount":        "500",
			"created_at":    now,
			"execute_after": now.Add(90 * time.Minute),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txn, err := client.QueueTransaction(context.Background(), QueueTransactionParams{
		TxType:    "MINT",
		Initiator: "0x00000000000000000000000000000000000000b1",
		Target:    "0x00000000000000000000000000000000000000c1",
		Amount:    "500",
	})
	require.NoError(t, err)
	require.NotNil(t, txn)

	assert.Equal(t, int64(7), txn.ID)
	assert.Equal(t, "PENDING", txn.Status)
	assert.Equal(t, "500", txn.Amount)
	assert.Equal(t, now.Add(90*time.Minute), txn.ExecuteAfter.UTC())
}

func TestQueueTransaction_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "initiator lacks required role",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txn, err := client.QueueTransaction(context.Background(), QueueTransactionParams{
		TxType:    "MINT",
		Initiator: "0x00000000000000000000000000000000000000c1",
		Amount:    "500",
	})
	require.Error(t, err)
	assert.Nil(t, txn)
	assert.Contains(t, err.Error(), "initiator lacks required role")
}

func TestGetTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions/99", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "transaction not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.GetTransaction(context.Background(), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction not found")
}

func TestListTransactions_Filters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "PENDING", r.URL.Query().Get("status"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"transactions": []map[string]interface{}{
				{"id": 1, "tx_type": "MINT", "status": "PENDING", "amount": "100"},
				{"id": 2, "tx_type": "BURN", "status": "PENDING", "amount": "200"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txns, err := client.ListTransactions(context.Background(), "PENDING", 10, 20)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(1), txns[0].ID)
	assert.Equal(t, "BURN", txns[1].TxType)
}

func TestListPendingIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions/pending", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"ids": []int64{3, 5, 8}})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	ids, err := client.ListPendingIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 8}, ids)
}

func TestApprove_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/transactions/7/approve", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0x00000000000000000000000000000000000000a2", body["approver"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       7,
			"tx_type":  "MINT",
			"status":   "EXECUTED",
			"approver": body["approver"],
			"amount":   "500",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	txn, err := client.Approve(context.Background(), 7, "0x00000000000000000000000000000000000000a2")
	require.NoError(t, err)
	assert.Equal(t, "EXECUTED", txn.Status)
	assert.Equal(t, "0x00000000000000000000000000000000000000a2", txn.Approver)
}

func TestReject_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "transaction is not pending"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Reject(context.Background(), 7, "0x00000000000000000000000000000000000000a2", "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not pending")
}

func TestRequestRedemption_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/redemptions", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "7000", body["amount"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     3,
			"user":   body["user"],
			"amount": body["amount"],
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	redemption, err := client.RequestRedemption(context.Background(), "0x00000000000000000000000000000000000000c1", "7000")
	require.NoError(t, err)
	assert.Equal(t, int64(3), redemption.ID)
	assert.Equal(t, "7000", redemption.Amount)
	assert.False(t, redemption.Processed)
}

func TestProcessRedemption_Success(t *testing.T) {
	burnID := int64(12)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/redemptions/3/process", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["approve"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         3,
			"processed":  true,
			"approved":   true,
			"burn_tx_id": burnID,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	redemption, err := client.ProcessRedemption(context.Background(), 3, true, "0x00000000000000000000000000000000000000a1")
	require.NoError(t, err)
	assert.True(t, redemption.Processed)
	assert.True(t, redemption.Approved)
	require.NotNil(t, redemption.BurnTxID)
	assert.Equal(t, burnID, *redemption.BurnTxID)
}

func TestListRedemptions_ProcessedFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("processed"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"redemptions": []map[string]interface{}{{"id": 1, "amount": "10"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	processed := false
	reqs, err := client.ListRedemptions(context.Background(), &processed)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(1), reqs[0].ID)
}

func TestGetAddressStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/addresses/0x00000000000000000000000000000000000000a1/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"address":     "0x00000000000000000000000000000000000000a1",
			"blacklisted": false,
			"frozen":      false,
			"roles":       []string{"ADMIN"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	status, err := client.GetAddressStatus(context.Background(), "0x00000000000000000000000000000000000000a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN"}, status.Roles)
	assert.False(t, status.Blacklisted)
}

func TestQueueConfigAndPause(t *testing.T) {
	var pausedCalled, unpausedCalled bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/queue/config":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"cooldown_period":    "1h30m0s",
				"required_approvals": 1,
				"paused":             false,
			})
		case "/api/v1/queue/pause":
			pausedCalled = true
			json.NewEncoder(w).Encode(map[string]bool{"paused": true})
		case "/api/v1/queue/unpause":
			unpausedCalled = true
			json.NewEncoder(w).Encode(map[string]bool{"paused": false})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)

	cfg, err := client.GetQueueConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", cfg.CooldownPeriod)
	assert.Equal(t, int64(1), cfg.RequiredApprovals)

	require.NoError(t, client.PauseQueue(context.Background(), "0x00000000000000000000000000000000000000a1"))
	require.NoError(t, client.UnpauseQueue(context.Background(), "0x00000000000000000000000000000000000000a1"))
	assert.True(t, pausedCalled)
	assert.True(t, unpausedCalled)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	assert.NoError(t, client.Health(context.Background()))
}

func TestHealth_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
