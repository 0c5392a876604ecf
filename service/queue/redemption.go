package queue

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gsdc-platform/adminq/service/nats"
)

// RequestRedemption records a user's intent to have amount of their own
// tokens burned. No token state changes; an admin must process the
// request, and approval only enqueues a BURN through the normal queue.
func (s *Service) RequestRedemption(ctx context.Context, user string, amount *big.Int) (*RedemptionRequest, error) {
	if IsZeroAddress(user) {
		return nil, fmt.Errorf("redemption requires a user address: %w", ErrZeroAddress)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("redemption requires a positive amount: %w", ErrInvalidAmount)
	}

	req, err := s.store.CreateRedemptionRequest(ctx, user, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("redemption requested",
		"request_id", req.ID,
		"user", req.User,
	)
	if s.metrics != nil {
		s.metrics.RecordRedemptionRequested()
	}
	s.publishRedemption(ctx, nats.EventRedemptionRequested, req)

	return req, nil
}

// ProcessRedemption decides a pending redemption request. Approval
// enqueues a BURN targeting the user, initiated by the processing admin,
// subject to the full queue lifecycle; it never moves tokens directly.
// Denial just marks the request processed.
func (s *Service) ProcessRedemption(ctx context.Context, id int64, approve bool, admin string) (*RedemptionRequest, error) {
	isAdmin, err := s.store.HasRole(ctx, RoleAdmin, admin)
	if err != nil {
		return nil, fmt.Errorf("failed to check role for %s: %w", admin, err)
	}
	if !isAdmin {
		return nil, fmt.Errorf("%s may not process redemptions: %w", admin, ErrUnauthorized)
	}

	var req *RedemptionRequest
	outcome := "denied"
	if approve {
		outcome = "approved"

		// Approval queues a transaction, so it honours the pause flag.
		if err := s.failIfPaused(ctx); err != nil {
			return nil, err
		}

		current, err := s.store.GetRedemptionRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Processed {
			return nil, fmt.Errorf("redemption %d: %w", id, ErrAlreadyProcessed)
		}

		// The decision and the burn commit together: if the store cannot
		// queue the burn, the request stays unprocessed and retryable.
		now := s.now().UTC()
		var txn *PendingTransaction
		req, txn, err = s.store.ApproveRedemption(ctx, id, admin, CreateTransactionParams{
			TxType:       TxTypeBurn,
			Initiator:    admin,
			Target:       current.User,
			Amount:       current.Amount,
			CreatedAt:    now,
			ExecuteAfter: now.Add(s.cooldown),
		})
		if err != nil {
			return nil, err
		}
		s.announceQueued(ctx, txn)
	} else {
		var err error
		req, err = s.store.MarkRedemptionProcessed(ctx, id, false, admin)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("redemption processed",
		"request_id", req.ID,
		"user", req.User,
		"approved", approve,
		"admin", admin,
	)
	if s.metrics != nil {
		s.metrics.RecordRedemptionProcessed(outcome)
	}
	s.publishRedemption(ctx, nats.EventRedemptionProcessed, req)

	return req, nil
}

// GetRedemptionRequest retrieves a redemption request by id.
func (s *Service) GetRedemptionRequest(ctx context.Context, id int64) (*RedemptionRequest, error) {
	return s.store.GetRedemptionRequest(ctx, id)
}

// ListRedemptionRequests returns redemption requests, optionally filtered
// by processed state.
func (s *Service) ListRedemptionRequests(ctx context.Context, processed *bool) ([]*RedemptionRequest, error) {
	return s.store.ListRedemptionRequests(ctx, processed)
}

func (s *Service) publishRedemption(ctx context.Context, kind string, req *RedemptionRequest) {
	if s.publisher == nil {
		return
	}
	event := &nats.RedemptionEvent{
		Kind:        kind,
		RequestID:   req.ID,
		User:        req.User,
		Approved:    req.Approved,
		BurnTxID:    req.BurnTxID,
		ProcessedBy: req.ProcessedBy,
		PublishedAt: time.Now().UTC(),
	}
	if req.Amount != nil {
		event.Amount = req.Amount.String()
	}
	if err := s.publisher.PublishRedemption(ctx, event); err != nil {
		s.logger.Error("failed to publish redemption event",
			"kind", kind,
			"request_id", req.ID,
			"error", err,
		)
	}
}
