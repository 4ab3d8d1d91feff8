package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/domain"
)

func TestRankNearby(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Downtown Seattle as the caller position.
	const lat, lon = 47.6062, -122.3321

	t.Run("orders by relevance and filters by tier and radius", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		near := f.addDeal(func(d *domain.Deal) {
			d.Title = "near"
			d.Latitude, d.Longitude = 47.6070, -122.3330
			d.DiscountPercent = 10
		})
		farBigDiscount := f.addDeal(func(d *domain.Deal) {
			d.Title = "far big discount"
			d.Latitude, d.Longitude = 47.70, -122.40
			d.DiscountPercent = 90
		})
		gated := f.addDeal(func(d *domain.Deal) {
			d.Latitude, d.Longitude = 47.6062, -122.3321
			d.RequiredTier = domain.TierUltimate
		})
		outOfRange := f.addDeal(func(d *domain.Deal) {
			// Portland, well outside a 20 km radius.
			d.Latitude, d.Longitude = 45.5152, -122.6784
		})

		ranked, err := f.svc.RankNearby(ctx, lat, lon, 20, domain.TierBasic)
		if err != nil {
			t.Fatalf("RankNearby: %v", err)
		}

		ids := make(map[uuid.UUID]bool, len(ranked))
		for _, item := range ranked {
			ids[item.Deal.DealID] = true
		}
		if !ids[near] || !ids[farBigDiscount] {
			t.Fatalf("expected both claimable deals in the listing, got %v", ids)
		}
		if ids[gated] {
			t.Error("tier-gated deal leaked into a basic listing")
		}
		if ids[outOfRange] {
			t.Error("deal beyond the radius leaked into the listing")
		}

		for i := 1; i < len(ranked); i++ {
			if ranked[i-1].RelevanceScore < ranked[i].RelevanceScore {
				t.Errorf("listing not sorted by score: %f before %f",
					ranked[i-1].RelevanceScore, ranked[i].RelevanceScore)
			}
		}
	})

	t.Run("recently redeemed ranks above long-idle at equal distance and discount", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		recent := f.now.Add(-1 * time.Hour)
		stale := f.now.Add(-30 * 24 * time.Hour)
		hot := f.addDeal(func(d *domain.Deal) {
			d.Latitude, d.Longitude = 47.6100, -122.3300
			d.LastRedeemedAt = &recent
		})
		idle := f.addDeal(func(d *domain.Deal) {
			d.Latitude, d.Longitude = 47.6100, -122.3300
			d.LastRedeemedAt = &stale
		})

		ranked, err := f.svc.RankNearby(ctx, lat, lon, 20, domain.TierBasic)
		if err != nil {
			t.Fatalf("RankNearby: %v", err)
		}
		if len(ranked) != 2 {
			t.Fatalf("got %d deals, want 2", len(ranked))
		}
		if ranked[0].Deal.DealID != hot || ranked[1].Deal.DealID != idle {
			t.Errorf("order = [%s %s], want hot deal first", ranked[0].Deal.Title, ranked[1].Deal.Title)
		}
	})

	t.Run("rejects out-of-range coordinates", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		if _, err := f.svc.RankNearby(ctx, 91, 0, 10, domain.TierBasic); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}
