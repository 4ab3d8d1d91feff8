package postgres

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealspot/redemption-engine/internal/domain"
)

type dealRepository struct {
	db *gorm.DB
}

func (r *dealRepository) GetByID(ctx context.Context, dealID uuid.UUID) (domain.Deal, error) {
	var rec dealModel
	if err := r.db.WithContext(ctx).Where("deal_id = ?", dealID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Deal{}, domain.ErrDealNotFound
		}
		return domain.Deal{}, err
	}
	return toDomainDeal(rec), nil
}

// ReserveSlot is the single write path that moves the redemption counter up.
// The bound lives inside the UPDATE predicate, so N concurrent reservations
// can never push current_redemptions past the cap regardless of interleaving.
func (r *dealRepository) ReserveSlot(ctx context.Context, dealID uuid.UUID) (bool, error) {
	return reserveSlot(r.db.WithContext(ctx), dealID)
}

func reserveSlot(db *gorm.DB, dealID uuid.UUID) (bool, error) {
	res := db.Exec(`
		UPDATE deals
		   SET current_redemptions = current_redemptions + 1,
		       updated_at = now()
		 WHERE deal_id = ?
		   AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)`,
		dealID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *dealRepository) TouchLastRedeemed(ctx context.Context, dealID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&dealModel{}).
		Where("deal_id = ?", dealID).
		Updates(map[string]any{"last_redeemed_at": at, "updated_at": at}).Error
}

// ListNearbyCandidates pre-filters on a bounding box around the caller; the
// exact haversine cut and ranking happen in the application layer.
func (r *dealRepository) ListNearbyCandidates(ctx context.Context, lat, lon, radiusKm float64, now time.Time) ([]domain.Deal, error) {
	const kmPerDegreeLat = 111.0
	latDelta := radiusKm / kmPerDegreeLat
	lonScale := math.Cos(lat * math.Pi / 180)
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	lonDelta := radiusKm / (kmPerDegreeLat * lonScale)

	var rows []dealModel
	err := r.db.WithContext(ctx).
		Where("is_active AND is_approved").
		Where("valid_from <= ? AND valid_until > ?", now, now).
		Where("latitude BETWEEN ? AND ?", lat-latDelta, lat+latDelta).
		Where("longitude BETWEEN ? AND ?", lon-lonDelta, lon+lonDelta).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.Deal, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainDeal(row))
	}
	return result, nil
}
