package domain

import (
	"testing"
	"time"
)

func TestParseTier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want MembershipTier
	}{
		{"basic", TierBasic},
		{"premium", TierPremium},
		{"ultimate", TierUltimate},
		{"", TierBasic},
		{"gold", TierBasic},
	}
	for _, tc := range cases {
		if got := ParseTier(tc.raw); got != tc.want {
			t.Errorf("ParseTier(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestTierAtLeast(t *testing.T) {
	t.Parallel()

	if !TierUltimate.AtLeast(TierBasic) || !TierPremium.AtLeast(TierPremium) {
		t.Error("higher or equal tier must clear the gate")
	}
	if TierBasic.AtLeast(TierPremium) {
		t.Error("basic must not clear a premium gate")
	}
}

func TestDealClaimable(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	base := Deal{
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
		IsActive:   true,
		IsApproved: true,
	}

	cases := []struct {
		name   string
		mutate func(*Deal)
		at     time.Time
		want   bool
	}{
		{"inside window", nil, now, true},
		{"at window start", nil, base.ValidFrom, true},
		{"at window end", nil, base.ValidUntil, false},
		{"before window", nil, base.ValidFrom.Add(-time.Second), false},
		{"inactive", func(d *Deal) { d.IsActive = false }, now, false},
		{"unapproved", func(d *Deal) { d.IsApproved = false }, now, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deal := base
			if tc.mutate != nil {
				tc.mutate(&deal)
			}
			if got := deal.Claimable(tc.at); got != tc.want {
				t.Errorf("Claimable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDealFullyRedeemed(t *testing.T) {
	t.Parallel()

	cap3 := 3
	if (Deal{MaxRedemptions: nil, CurrentRedemptions: 1000000}).FullyRedeemed() {
		t.Error("uncapped deal reported fully redeemed")
	}
	if (Deal{MaxRedemptions: &cap3, CurrentRedemptions: 2}).FullyRedeemed() {
		t.Error("deal below cap reported fully redeemed")
	}
	if !(Deal{MaxRedemptions: &cap3, CurrentRedemptions: 3}).FullyRedeemed() {
		t.Error("deal at cap not reported fully redeemed")
	}
}

func TestHashedPinExpired(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pin := HashedPin{Hash: "x", CreatedAt: created}

	if pin.Expired(created.Add(HashedPinValidity - time.Second)) {
		t.Error("material inside validity reported expired")
	}
	if !pin.Expired(created.Add(HashedPinValidity)) {
		t.Error("material at validity boundary not reported expired")
	}
}

func TestSavingsForBill(t *testing.T) {
	t.Parallel()

	cases := []struct {
		bill     int64
		discount int
		want     int64
	}{
		{500, 20, 100},
		{4550, 20, 910},
		{99, 10, 9},
		{0, 50, 0},
		{100, 0, 0},
	}
	for _, tc := range cases {
		if got := SavingsForBill(tc.bill, tc.discount); got != tc.want {
			t.Errorf("SavingsForBill(%d, %d) = %d, want %d", tc.bill, tc.discount, got, tc.want)
		}
	}
}
