package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dealspot/redemption-engine/internal/domain"
)

func toDomainDeal(row dealModel) domain.Deal {
	deal := domain.Deal{
		DealID:             row.DealID,
		VendorID:           row.VendorID,
		Title:              row.Title,
		DiscountPercent:    row.DiscountPercent,
		ValidFrom:          row.ValidFrom,
		ValidUntil:         row.ValidUntil,
		MaxRedemptions:     row.MaxRedemptions,
		CurrentRedemptions: row.CurrentRedemptions,
		RequiredTier:       domain.ParseTier(row.RequiredTier),
		IsActive:           row.IsActive,
		IsApproved:         row.IsApproved,
		Latitude:           row.Latitude,
		Longitude:          row.Longitude,
		LastRedeemedAt:     row.LastRedeemedAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.PinHash != nil && row.PinHashCreatedAt != nil {
		deal.Pin.Hashed = &domain.HashedPin{
			Hash:      *row.PinHash,
			CreatedAt: *row.PinHashCreatedAt,
		}
	}
	if row.PinLegacy != nil {
		deal.Pin.Legacy = *row.PinLegacy
	}
	return deal
}

func toDomainClaim(row claimModel) domain.Claim {
	return domain.Claim{
		ClaimID:         row.ClaimID,
		DealID:          row.DealID,
		UserID:          row.UserID,
		State:           domain.ClaimState(row.State),
		CreatedAt:       row.CreatedAt,
		VerifiedAt:      row.VerifiedAt,
		MatchedLayer:    row.MatchedLayer,
		BillAmountCents: row.BillAmountCents,
		SavingsCents:    row.SavingsCents,
	}
}

func toDomainAttempt(row verificationAttemptModel) domain.VerificationAttempt {
	ip := ""
	if row.SourceIP != nil {
		ip = *row.SourceIP
	}
	return domain.VerificationAttempt{
		ID:            row.ID,
		ClaimID:       row.ClaimID,
		UserID:        row.UserID,
		DealID:        row.DealID,
		AttemptAt:     row.AttemptAt,
		SourceIP:      ip,
		SubmittedCode: row.SubmittedCode,
		Outcome:       row.Outcome,
		MatchedLayer:  row.MatchedLayer,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
