package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/dealspot/redemption-engine/internal/domain"
	"github.com/dealspot/redemption-engine/internal/geo"
)

// RankedDeal is one entry of a nearby listing: the deal, its distance from the
// caller, and the blended relevance score it was ordered by.
type RankedDeal struct {
	Deal           domain.Deal
	DistanceKm     float64
	RelevanceScore float64
}

// RankNearby orders claimable deals around the caller's location. Deals beyond
// the radius and deals above the caller's tier are excluded. The ranking is
// recomputed per request; callers add their own caching if they want any.
func (s *Service) RankNearby(ctx context.Context, lat, lon, radiusKm float64, userTier domain.MembershipTier) ([]RankedDeal, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	if radiusKm <= 0 || radiusKm > s.cfg.MaxNearbyRadiusKm {
		radiusKm = s.cfg.MaxNearbyRadiusKm
	}

	now := s.nowFn()
	candidates, err := s.deals.ListNearbyCandidates(ctx, lat, lon, radiusKm, now)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedDeal, 0, len(candidates))
	for _, deal := range candidates {
		if !deal.Claimable(now) || !userTier.AtLeast(deal.RequiredTier) {
			continue
		}
		distance := geo.DistanceKm(lat, lon, deal.Latitude, deal.Longitude)
		if distance > radiusKm {
			continue
		}
		hoursSince := -1.0
		if deal.LastRedeemedAt != nil {
			hoursSince = now.Sub(*deal.LastRedeemedAt).Hours()
		}
		ranked = append(ranked, RankedDeal{
			Deal:           deal,
			DistanceKm:     distance,
			RelevanceScore: geo.Relevance(s.cfg.RankWeights, distance, deal.DiscountPercent, hoursSince),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked, nil
}
