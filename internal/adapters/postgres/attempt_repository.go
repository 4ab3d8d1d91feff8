package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealspot/redemption-engine/internal/domain"
)

type attemptRepository struct {
	db *gorm.DB
}

func (r *attemptRepository) Insert(ctx context.Context, attempt domain.VerificationAttempt) error {
	rec := verificationAttemptModel{
		ClaimID:       attempt.ClaimID,
		UserID:        attempt.UserID,
		DealID:        attempt.DealID,
		AttemptAt:     attempt.AttemptAt,
		SourceIP:      nullableString(attempt.SourceIP),
		SubmittedCode: attempt.SubmittedCode,
		Outcome:       attempt.Outcome,
		MatchedLayer:  attempt.MatchedLayer,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *attemptRepository) ListByDeal(ctx context.Context, dealID uuid.UUID, limit, offset int) ([]domain.VerificationAttempt, error) {
	var rows []verificationAttemptModel
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("attempt_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.VerificationAttempt, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainAttempt(row))
	}
	return result, nil
}
