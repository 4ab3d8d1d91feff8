package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/domain"
)

// CustomerSavings totals a customer's verified savings in cents. Pending
// claims are excluded: reserving inventory produces zero savings until the
// in-store PIN match confirms the visit.
func (s *Service) CustomerSavings(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.claims.SumSavings(ctx, userID)
}

// VendorRedemptionStats counts verified redemptions per deal for one vendor.
// Like savings, only used claims count.
func (s *Service) VendorRedemptionStats(ctx context.Context, vendorID uuid.UUID) (map[uuid.UUID]int64, error) {
	return s.claims.CountRedemptionsByVendor(ctx, vendorID)
}

// ListVerificationAttempts returns the audit trail for a deal, newest first,
// for fraud review.
func (s *Service) ListVerificationAttempts(ctx context.Context, dealID uuid.UUID, limit, offset int) ([]domain.VerificationAttempt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.deals.GetByID(ctx, dealID); err != nil {
		return nil, err
	}
	return s.attempts.ListByDeal(ctx, dealID, limit, offset)
}
