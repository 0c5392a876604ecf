package queue

import (
	"context"
	"fmt"
	"strconv"
)

// requiredRole returns the capability needed to queue a transaction of the
// given type. Role changes, ownership transfer, contract updates and token
// pausing are reserved for ADMIN.
func requiredRole(t TxType) Role {
	switch t {
	case TxTypeMint:
		return RoleMinter
	case TxTypeBurn, TxTypeBurnBlacklisted:
		return RoleBurner
	case TxTypeBlacklist:
		return RoleBlacklistManager
	case TxTypeFreeze, TxTypeUnfreeze:
		return RoleFreezeManager
	default:
		return RoleAdmin
	}
}

// authorizedFor reports whether caller may queue a transaction of the
// given type. ADMIN is a superset capability: the elevated check happens
// here once instead of "or is admin" in every gate.
func (s *Service) authorizedFor(ctx context.Context, caller string, t TxType) (bool, error) {
	isAdmin, err := s.store.HasRole(ctx, RoleAdmin, caller)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}
	return s.store.HasRole(ctx, requiredRole(t), caller)
}

// authorizedToReview reports whether caller may approve or reject.
func (s *Service) authorizedToReview(ctx context.Context, caller string) (bool, error) {
	isAdmin, err := s.store.HasRole(ctx, RoleAdmin, caller)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}
	return s.store.HasRole(ctx, RoleApprover, caller)
}

// checkProtectedTarget enforces the governance invariants: admins may
// never be blacklisted or frozen, approvers may never be blacklisted, and
// a revoke may not drop approver or admin membership below the configured
// minimum. Consulted at queue time and again under the claim at dispatch
// time, since roles can change during the cooldown.
func (s *Service) checkProtectedTarget(ctx context.Context, t TxType, target, data string) error {
	switch t {
	case TxTypeBlacklist:
		flag, err := parseBlacklistFlag(data)
		if err != nil {
			return err
		}
		if !flag {
			return nil
		}
		for _, role := range []Role{RoleAdmin, RoleApprover} {
			held, err := s.store.HasRole(ctx, role, target)
			if err != nil {
				return err
			}
			if held {
				return fmt.Errorf("cannot blacklist %s holder %s: %w", role, target, ErrProtectedAddress)
			}
		}
	case TxTypeFreeze:
		held, err := s.store.HasRole(ctx, RoleAdmin, target)
		if err != nil {
			return err
		}
		if held {
			return fmt.Errorf("cannot freeze %s holder %s: %w", RoleAdmin, target, ErrProtectedAddress)
		}
	case TxTypeRoleRevoke:
		role, err := ParseRole(data)
		if err != nil {
			return err
		}
		if role != RoleApprover && role != RoleAdmin {
			return nil
		}
		held, err := s.store.HasRole(ctx, role, target)
		if err != nil {
			return err
		}
		if !held {
			return nil
		}
		count, err := s.store.CountRoleHolders(ctx, role)
		if err != nil {
			return err
		}
		if count <= s.minApprovers {
			return fmt.Errorf("revoking %s from %s leaves %d holders: %w", role, target, count-1, ErrApproverFloor)
		}
	}
	return nil
}

// parseBlacklistFlag reads the data payload of a BLACKLIST transaction.
func parseBlacklistFlag(data string) (bool, error) {
	flag, err := strconv.ParseBool(data)
	if err != nil {
		return false, fmt.Errorf("blacklist data must be a boolean, got %q", data)
	}
	return flag, nil
}
