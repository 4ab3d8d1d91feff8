package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClaimState is the stored lifecycle state of a claim. Rejection is an
// operation outcome, not a stored state: refused requests never create a row.
type ClaimState string

const (
	ClaimPending ClaimState = "pending"
	ClaimUsed    ClaimState = "used"
)

// Claim is a customer's reservation against a deal. Claiming reserves
// inventory but contributes nothing to savings figures until an in-store PIN
// match moves it to used. Claims are never physically deleted.
type Claim struct {
	ClaimID         uuid.UUID
	DealID          uuid.UUID
	UserID          uuid.UUID
	State           ClaimState
	CreatedAt       time.Time
	VerifiedAt      *time.Time
	MatchedLayer    string
	BillAmountCents *int64
	SavingsCents    *int64
}

// Active reports whether the claim still occupies a redemption slot. Both
// pending and used claims block a duplicate claim for the same (user, deal).
func (c Claim) Active() bool {
	return c.State == ClaimPending || c.State == ClaimUsed
}

// Verification layer names, recorded on the claim and on every audit row.
const (
	LayerRotating = "rotating"
	LayerHashed   = "hashed"
	LayerLegacy   = "legacy"
)

// Attempt outcomes. One of these is written for every verification call,
// success or failure, so fraud review sees the complete picture.
const (
	OutcomeMatchedRotating = "matched-rotating"
	OutcomeMatchedHashed   = "matched-hashed"
	OutcomeMatchedLegacy   = "matched-legacy"
	OutcomeNoMatch         = "no-match"
	OutcomeRateLimited     = "rate-limited"
)

// VerificationAttempt is the append-only audit record of a PIN entry.
// ClaimID is nil when the attempt never resolved to a claim.
type VerificationAttempt struct {
	ID            int64
	ClaimID       *uuid.UUID
	UserID        uuid.UUID
	DealID        uuid.UUID
	AttemptAt     time.Time
	SourceIP      string
	SubmittedCode string
	Outcome       string
	MatchedLayer  string
}

// SavingsForBill computes the savings amount for a bill total at the deal's
// discount percentage, in cents, truncating fractional cents.
func SavingsForBill(billCents int64, discountPercent int) int64 {
	return billCents * int64(discountPercent) / 100
}
