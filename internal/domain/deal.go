package domain

import (
	"time"

	"github.com/google/uuid"
)

// MembershipTier is the ordered subscription level gating deal visibility and
// claim eligibility. Comparison is plain integer ordering.
type MembershipTier int

const (
	TierBasic    MembershipTier = 1
	TierPremium  MembershipTier = 2
	TierUltimate MembershipTier = 3
)

// ParseTier maps the wire representation to a tier, defaulting to basic so
// unlabeled deals stay open to everyone.
func ParseTier(raw string) MembershipTier {
	switch raw {
	case "premium":
		return TierPremium
	case "ultimate":
		return TierUltimate
	default:
		return TierBasic
	}
}

func (t MembershipTier) String() string {
	switch t {
	case TierPremium:
		return "premium"
	case TierUltimate:
		return "ultimate"
	default:
		return "basic"
	}
}

// AtLeast reports whether a user holding tier t may access a deal requiring
// the given tier. Pure comparison, no side effects.
func (t MembershipTier) AtLeast(required MembershipTier) bool {
	return t >= required
}

// HashedPin is salted-hash PIN material created under the second credential
// generation. Material older than its validity window is skipped by the
// verifier, never auto-renewed.
type HashedPin struct {
	Hash      string
	CreatedAt time.Time
}

// HashedPinValidity is the lifetime of hashed-static PIN material.
const HashedPinValidity = 90 * 24 * time.Hour

// Expired reports whether the hashed material is past its validity window.
func (p HashedPin) Expired(now time.Time) bool {
	return !p.CreatedAt.Add(HashedPinValidity).After(now)
}

// PinMaterial carries the per-deal credential variants that coexist during the
// PIN-scheme migration. The rotating layer needs no stored state, so only the
// hashed and legacy generations appear here; a deal may carry both.
type PinMaterial struct {
	Hashed *HashedPin
	Legacy string
}

// Deal is a merchant-authored offer with a bounded redemption capacity.
// CurrentRedemptions mirrors the authoritative counter column; it is only
// moved through the atomic reserve inside the claim-insert transaction.
type Deal struct {
	DealID             uuid.UUID
	VendorID           uuid.UUID
	Title              string
	DiscountPercent    int
	ValidFrom          time.Time
	ValidUntil         time.Time
	MaxRedemptions     *int
	CurrentRedemptions int
	RequiredTier       MembershipTier
	IsActive           bool
	IsApproved         bool
	Latitude           float64
	Longitude          float64
	LastRedeemedAt     *time.Time
	Pin                PinMaterial
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Claimable reports whether the deal accepts new claims at the given instant.
// The validity window is inclusive at the start and open at the end.
func (d Deal) Claimable(now time.Time) bool {
	if !d.IsActive || !d.IsApproved {
		return false
	}
	return !now.Before(d.ValidFrom) && now.Before(d.ValidUntil)
}

// FullyRedeemed reports whether the capacity cap is exhausted. A nil
// MaxRedemptions means unlimited.
func (d Deal) FullyRedeemed() bool {
	return d.MaxRedemptions != nil && d.CurrentRedemptions >= *d.MaxRedemptions
}
