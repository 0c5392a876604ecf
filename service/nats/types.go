package nats

import (
	"time"
)

// Lifecycle kinds for transaction events. The kind selects the subject
// the event is published to: "admin.tx.{kind}".
const (
	EventQueued   = "queued"
	EventApproved = "approved"
	EventRejected = "rejected"
	EventExecuted = "executed"
)

// Redemption event kinds, published to "admin.redemption.{kind}".
const (
	EventRedemptionRequested = "requested"
	EventRedemptionProcessed = "processed"
)

// TransactionEvent represents a queue lifecycle event published to NATS.
type TransactionEvent struct {
	Kind   string `json:"kind"`
	TxID   int64  `json:"tx_id"`
	TxType string `json:"tx_type"`
	Status string `json:"status"`

	// Parties
	Initiator string `json:"initiator"`
	Target    string `json:"target,omitempty"`
	Approver  string `json:"approver,omitempty"`

	// Transaction details. Amount is a base-10 string since token
	// amounts exceed int64.
	Amount string `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Auto marks cooldown-driven execution with no approver.
	Auto bool `json:"auto,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// RedemptionEvent represents a redemption request lifecycle event.
type RedemptionEvent struct {
	Kind        string    `json:"kind"`
	RequestID   int64     `json:"request_id"`
	User        string    `json:"user"`
	Amount      string    `json:"amount"`
	Approved    bool      `json:"approved,omitempty"`
	BurnTxID    *int64    `json:"burn_tx_id,omitempty"`
	ProcessedBy string    `json:"processed_by,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
