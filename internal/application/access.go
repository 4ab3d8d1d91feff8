package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/domain"
)

// CheckAccess reports whether a customer at the given tier may claim the deal
// right now. Sibling services call this before rendering claim buttons; the
// authoritative check runs again inside CreateClaim.
func (s *Service) CheckAccess(ctx context.Context, userTier domain.MembershipTier, dealID uuid.UUID) (bool, string, error) {
	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return false, "", err
	}

	now := s.nowFn()
	switch {
	case !deal.Claimable(now):
		return false, "deal_inactive_or_expired", nil
	case deal.FullyRedeemed():
		return false, "deal_fully_redeemed", nil
	case !userTier.AtLeast(deal.RequiredTier):
		return false, "membership_insufficient", nil
	default:
		return true, "", nil
	}
}
