package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/domain"
	"github.com/dealspot/redemption-engine/internal/ports"
)

// CreateClaim reserves a deal for a customer. Preconditions are checked in a
// fixed order, each with its own error kind: deal exists, deal claimable,
// membership sufficient, no duplicate active claim, capacity remaining. The
// capacity reserve and the claim insert commit in one transaction; losing the
// reservation race is retried a bounded number of times before
// ErrConcurrencyConflict reaches the caller.
func (s *Service) CreateClaim(ctx context.Context, userID uuid.UUID, userTier domain.MembershipTier, dealID uuid.UUID) (domain.Claim, error) {
	now := s.nowFn()

	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return domain.Claim{}, err
	}
	if !deal.Claimable(now) {
		return domain.Claim{}, domain.ErrDealInactive
	}
	if !userTier.AtLeast(deal.RequiredTier) {
		return domain.Claim{}, &domain.MembershipError{Current: userTier, Required: deal.RequiredTier}
	}
	if _, err := s.claims.GetActive(ctx, userID, dealID); err == nil {
		return domain.Claim{}, domain.ErrClaimAlreadyExists
	} else if !errors.Is(err, domain.ErrClaimNotFound) {
		return domain.Claim{}, err
	}

	event := s.claimEvent("claim.created", dealID, map[string]any{
		"deal_id":    dealID,
		"user_id":    userID,
		"claimed_at": now,
	})

	var lastErr error
	for attempt := 0; attempt < s.cfg.ReserveRetries; attempt++ {
		claim, err := s.claims.CreateWithReservationTx(ctx, ports.ClaimCreateParams{
			DealID:    dealID,
			UserID:    userID,
			CreatedAt: now,
		}, event)
		if err == nil {
			return claim, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return domain.Claim{}, err
		}
		lastErr = err
		s.logger.WarnContext(ctx, "claim reservation lost a race",
			"module", "application",
			"operation", "create_claim",
			"outcome", "retry",
			"deal_id", dealID,
			"attempt", attempt+1,
		)
	}
	return domain.Claim{}, lastErr
}

// Verify runs the in-store PIN check against a pending claim. Every attempt,
// whatever the outcome, leaves an audit row; the rate limiter counts denied
// attempts too. A successful match transitions the claim to used exactly once.
// Only the claim's owner may verify it; a foreign claim is indistinguishable
// from a missing one.
func (s *Service) Verify(ctx context.Context, callerID, claimID uuid.UUID, submittedCode, sourceIP string) (domain.Claim, error) {
	now := s.nowFn()

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return domain.Claim{}, err
	}
	if claim.UserID != callerID {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	if claim.State != domain.ClaimPending {
		return domain.Claim{}, domain.ErrClaimAlreadyVerified
	}

	allowed, retryAfter, err := s.limiter.CheckAndRecord(ctx, claim.UserID, claim.DealID, sourceIP, now)
	if err != nil {
		// A broken limiter store must not open the door to unlimited guessing.
		return domain.Claim{}, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		s.recordAttempt(ctx, claim, sourceIP, submittedCode, domain.OutcomeRateLimited, "")
		return domain.Claim{}, s.limiter.Denied(retryAfter)
	}

	deal, err := s.deals.GetByID(ctx, claim.DealID)
	if err != nil {
		return domain.Claim{}, err
	}

	layer, ok := s.verifier.Verify(deal, submittedCode, now)
	if !ok {
		s.recordAttempt(ctx, claim, sourceIP, submittedCode, domain.OutcomeNoMatch, "")
		return domain.Claim{}, domain.ErrPinMismatch
	}

	event := s.claimEvent("claim.verified", claim.DealID, map[string]any{
		"claim_id":      claim.ClaimID,
		"deal_id":       claim.DealID,
		"user_id":       claim.UserID,
		"matched_layer": layer,
		"verified_at":   now,
	})
	updated, err := s.claims.MarkUsed(ctx, claimID, layer, now, event)
	if err != nil {
		return domain.Claim{}, err
	}

	s.recordAttempt(ctx, updated, sourceIP, submittedCode, matchOutcome(layer), layer)
	if err := s.deals.TouchLastRedeemed(ctx, claim.DealID, now); err != nil {
		s.logger.ErrorContext(ctx, "touch last redeemed failed",
			"module", "application",
			"operation", "verify",
			"outcome", "degraded",
			"deal_id", claim.DealID,
			"error", err,
		)
	}
	return updated, nil
}

// RecordBillAmount settles the savings for a verified claim owned by the
// caller. Re-submitting a bill overwrites the prior amount rather than
// accumulating.
func (s *Service) RecordBillAmount(ctx context.Context, callerID, claimID uuid.UUID, billCents int64) (domain.Claim, error) {
	if billCents < 0 {
		return domain.Claim{}, fmt.Errorf("%w: bill amount must not be negative", domain.ErrInvalidInput)
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return domain.Claim{}, err
	}
	if claim.UserID != callerID {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	if claim.State != domain.ClaimUsed {
		return domain.Claim{}, domain.ErrClaimNotVerified
	}

	deal, err := s.deals.GetByID(ctx, claim.DealID)
	if err != nil {
		return domain.Claim{}, err
	}

	savings := domain.SavingsForBill(billCents, deal.DiscountPercent)
	event := s.claimEvent("claim.billed", claim.DealID, map[string]any{
		"claim_id":      claim.ClaimID,
		"bill_cents":    billCents,
		"savings_cents": savings,
	})
	return s.claims.SetBillAmount(ctx, claimID, billCents, savings, event)
}

// ListClaims returns the caller's claims, newest first.
func (s *Service) ListClaims(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Claim, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.claims.ListByUser(ctx, userID, limit, offset)
}

func matchOutcome(layer string) string {
	switch layer {
	case domain.LayerRotating:
		return domain.OutcomeMatchedRotating
	case domain.LayerHashed:
		return domain.OutcomeMatchedHashed
	default:
		return domain.OutcomeMatchedLegacy
	}
}

// recordAttempt writes the audit row for a verification attempt. Audit
// completeness matters for fraud review but must not degrade availability, so
// a failed write is logged and swallowed.
func (s *Service) recordAttempt(ctx context.Context, claim domain.Claim, sourceIP, submittedCode, outcome, layer string) {
	claimID := claim.ClaimID
	err := s.attempts.Insert(ctx, domain.VerificationAttempt{
		ClaimID:       &claimID,
		UserID:        claim.UserID,
		DealID:        claim.DealID,
		AttemptAt:     s.nowFn(),
		SourceIP:      sourceIP,
		SubmittedCode: submittedCode,
		Outcome:       outcome,
		MatchedLayer:  layer,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "verification attempt audit write failed",
			"module", "application",
			"operation", "record_attempt",
			"outcome", "failure",
			"claim_id", claim.ClaimID,
			"error", err,
		)
	}
}

func (s *Service) claimEvent(eventType string, dealID uuid.UUID, payload map[string]any) ports.OutboxEvent {
	raw, _ := json.Marshal(payload)
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: dealID.String(),
		Payload:      raw,
		OccurredAt:   s.nowFn(),
	}
}
