package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gsdc-platform/adminq/service/token"
)

// dispatch performs the privileged effect of a claimed transaction.
// Shared by Approve and Execute. A returned error means nothing was
// applied and the transaction should stay PENDING; all dispatch failures
// are wrapped in *DispatchError so callers can distinguish them from
// state and authorization errors.
func (s *Service) dispatch(ctx context.Context, txn *PendingTransaction) error {
	start := time.Now()
	err := s.dispatchCall(ctx, txn)
	if s.metrics != nil {
		s.metrics.RecordDispatch(string(txn.TxType), time.Since(start).Seconds())
		if err != nil {
			s.metrics.RecordDispatchFailure(string(txn.TxType), failureReason(err))
		}
	}
	if err != nil {
		return &DispatchError{TxID: txn.ID, TxType: txn.TxType, Err: err}
	}
	return nil
}

func (s *Service) dispatchCall(ctx context.Context, txn *PendingTransaction) error {
	switch txn.TxType {
	case TxTypeMint:
		if IsZeroAddress(txn.Target) {
			return fmt.Errorf("mint to the zero address: %w", ErrZeroAddress)
		}
		return s.token.Mint(ctx, txn.Target, txn.Amount)

	case TxTypeBurn:
		// Balance and allowance are enforced by the token itself; an
		// insufficient allowance surfaces as a revert.
		return s.token.BurnFrom(ctx, txn.Target, txn.Amount)

	case TxTypeBurnBlacklisted:
		blacklisted, err := s.token.IsBlacklisted(ctx, txn.Target)
		if err != nil {
			return err
		}
		if !blacklisted {
			return fmt.Errorf("target %s is not blacklisted", txn.Target)
		}
		return s.token.BurnBlacklisted(ctx, txn.Target, txn.Amount)

	case TxTypeBlacklist:
		if err := s.checkProtectedTarget(ctx, txn.TxType, txn.Target, txn.Data); err != nil {
			return err
		}
		flag, err := parseBlacklistFlag(txn.Data)
		if err != nil {
			return err
		}
		return s.token.SetBlacklistStatus(ctx, txn.Target, flag)

	case TxTypeFreeze:
		if err := s.checkProtectedTarget(ctx, txn.TxType, txn.Target, txn.Data); err != nil {
			return err
		}
		return s.token.Freeze(ctx, txn.Target)

	case TxTypeUnfreeze:
		return s.token.Unfreeze(ctx, txn.Target)

	case TxTypeRoleGrant:
		role, err := ParseRole(txn.Data)
		if err != nil {
			return err
		}
		return s.store.GrantRole(ctx, role, txn.Target)

	case TxTypeRoleRevoke:
		if err := s.checkProtectedTarget(ctx, txn.TxType, txn.Target, txn.Data); err != nil {
			return err
		}
		role, err := ParseRole(txn.Data)
		if err != nil {
			return err
		}
		return s.store.RevokeRole(ctx, role, txn.Target)

	case TxTypePauseToken:
		return s.token.Pause(ctx)

	case TxTypeUnpauseToken:
		return s.token.Unpause(ctx)

	case TxTypeTransferOwnership:
		return s.token.TransferOwnership(ctx, txn.Target)

	case TxTypeUpdateTokenContract:
		return s.token.UpdateTokenContract(ctx, txn.Target)

	default:
		return fmt.Errorf("unknown transaction type %q", txn.TxType)
	}
}

// failureReason buckets dispatch errors for the failure counter.
func failureReason(err error) string {
	switch {
	case errors.Is(err, token.ErrCallReverted):
		return "reverted"
	case errors.Is(err, ErrProtectedAddress):
		return "protected_address"
	case errors.Is(err, ErrApproverFloor):
		return "approver_floor"
	case errors.Is(err, ErrZeroAddress):
		return "zero_address"
	default:
		return "error"
	}
}
