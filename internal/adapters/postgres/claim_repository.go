package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealspot/redemption-engine/internal/domain"
	"github.com/dealspot/redemption-engine/internal/ports"
)

type claimRepository struct {
	db *gorm.DB
}

// CreateWithReservationTx reserves a redemption slot and inserts the claim in
// one transaction, together with the outbox row announcing it. If any step
// fails the reservation rolls back with the rest, so the counter and the
// claims table can never disagree.
func (r *claimRepository) CreateWithReservationTx(ctx context.Context, params ports.ClaimCreateParams, event ports.OutboxEvent) (domain.Claim, error) {
	var created claimModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reserved, err := reserveSlot(tx, params.DealID)
		if err != nil {
			return fmt.Errorf("reserve slot: %w", err)
		}
		if !reserved {
			return domain.ErrDealFullyRedeemed
		}

		created = claimModel{
			ClaimID:   uuid.New(),
			DealID:    params.DealID,
			UserID:    params.UserID,
			State:     string(domain.ClaimPending),
			CreatedAt: params.CreatedAt,
		}
		if err := tx.Create(&created).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrClaimAlreadyExists
			}
			return fmt.Errorf("insert claim: %w", err)
		}

		payload, err := patchPayload(event.Payload, "claim_id", created.ClaimID.String())
		if err != nil {
			return fmt.Errorf("patch event payload: %w", err)
		}
		event.Payload = payload
		if err := enqueueOutbox(tx, event); err != nil {
			return fmt.Errorf("enqueue outbox: %w", err)
		}
		return nil
	})
	if err != nil {
		if isSerializationFailure(err) {
			return domain.Claim{}, domain.ErrConcurrencyConflict
		}
		return domain.Claim{}, err
	}
	return toDomainClaim(created), nil
}

func (r *claimRepository) GetByID(ctx context.Context, claimID uuid.UUID) (domain.Claim, error) {
	var rec claimModel
	if err := r.db.WithContext(ctx).Where("claim_id = ?", claimID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Claim{}, domain.ErrClaimNotFound
		}
		return domain.Claim{}, err
	}
	return toDomainClaim(rec), nil
}

func (r *claimRepository) GetActive(ctx context.Context, userID, dealID uuid.UUID) (domain.Claim, error) {
	var rec claimModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deal_id = ?", userID, dealID).
		Where("state IN ?", []string{string(domain.ClaimPending), string(domain.ClaimUsed)}).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Claim{}, domain.ErrClaimNotFound
		}
		return domain.Claim{}, err
	}
	return toDomainClaim(rec), nil
}

// MarkUsed flips a pending claim to used. The state guard in the WHERE clause
// makes the transition single-shot: a second verifier racing on the same claim
// matches zero rows and gets ErrClaimAlreadyVerified.
func (r *claimRepository) MarkUsed(ctx context.Context, claimID uuid.UUID, matchedLayer string, verifiedAt time.Time, event ports.OutboxEvent) (domain.Claim, error) {
	var rec claimModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&claimModel{}).
			Where("claim_id = ? AND state = ?", claimID, string(domain.ClaimPending)).
			Updates(map[string]any{
				"state":         string(domain.ClaimUsed),
				"matched_layer": matchedLayer,
				"verified_at":   verifiedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&claimModel{}).Where("claim_id = ?", claimID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrClaimNotFound
			}
			return domain.ErrClaimAlreadyVerified
		}
		if err := tx.Where("claim_id = ?", claimID).Take(&rec).Error; err != nil {
			return err
		}
		return enqueueOutbox(tx, event)
	})
	if err != nil {
		if isSerializationFailure(err) {
			return domain.Claim{}, domain.ErrConcurrencyConflict
		}
		return domain.Claim{}, err
	}
	return toDomainClaim(rec), nil
}

func (r *claimRepository) SetBillAmount(ctx context.Context, claimID uuid.UUID, billCents, savingsCents int64, event ports.OutboxEvent) (domain.Claim, error) {
	var rec claimModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&claimModel{}).
			Where("claim_id = ? AND state = ?", claimID, string(domain.ClaimUsed)).
			Updates(map[string]any{
				"bill_amount_cents": billCents,
				"savings_cents":     savingsCents,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&claimModel{}).Where("claim_id = ?", claimID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrClaimNotFound
			}
			return domain.ErrClaimNotVerified
		}
		if err := tx.Where("claim_id = ?", claimID).Take(&rec).Error; err != nil {
			return err
		}
		return enqueueOutbox(tx, event)
	})
	if err != nil {
		return domain.Claim{}, err
	}
	return toDomainClaim(rec), nil
}

func (r *claimRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Claim, error) {
	var rows []claimModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Claim, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainClaim(row))
	}
	return result, nil
}

// SumSavings totals savings over billed redemptions only; verified claims with
// no bill recorded yet contribute nothing.
func (r *claimRepository) SumSavings(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&claimModel{}).
		Select("COALESCE(SUM(savings_cents), 0)").
		Where("user_id = ? AND state = ? AND savings_cents IS NOT NULL", userID, string(domain.ClaimUsed)).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *claimRepository) CountRedemptionsByVendor(ctx context.Context, vendorID uuid.UUID) (map[uuid.UUID]int64, error) {
	type row struct {
		DealID uuid.UUID `gorm:"column:deal_id"`
		Count  int64     `gorm:"column:count"`
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&claimModel{}).
		Select("claims.deal_id, COUNT(*) AS count").
		Joins("JOIN deals ON deals.deal_id = claims.deal_id").
		Where("deals.vendor_id = ? AND claims.state = ?", vendorID, string(domain.ClaimUsed)).
		Group("claims.deal_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		result[r.DealID] = r.Count
	}
	return result, nil
}

func patchPayload(payload []byte, key, value string) ([]byte, error) {
	fields := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, err
		}
	}
	fields[key] = value
	return json.Marshal(fields)
}
