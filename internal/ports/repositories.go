package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/domain"
)

// DealRepository defines persistence operations for deals, including the
// atomic redemption-counter move. The counter is only ever changed through
// ReserveSlot so the cap cannot be exceeded by read-then-write races.
type DealRepository interface {
	GetByID(ctx context.Context, dealID uuid.UUID) (domain.Deal, error)
	// ReserveSlot conditionally increments current_redemptions, bounded by
	// max_redemptions. Returns false when the deal is fully redeemed.
	ReserveSlot(ctx context.Context, dealID uuid.UUID) (bool, error)
	TouchLastRedeemed(ctx context.Context, dealID uuid.UUID, at time.Time) error
	// ListNearbyCandidates returns claimable deals inside the bounding box of
	// the radius; exact distance filtering and ranking happen in application.
	ListNearbyCandidates(ctx context.Context, lat, lon, radiusKm float64, now time.Time) ([]domain.Deal, error)
}

// ClaimCreateParams captures the inputs for inserting a pending claim.
type ClaimCreateParams struct {
	DealID    uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

// ClaimRepository manages the claim rows of the redemption ledger.
// CreateWithReservationTx runs the capacity reserve and the claim insert in
// one transaction together with the outbox event, so a cancelled request can
// never leave a reserved slot without a claim row.
type ClaimRepository interface {
	CreateWithReservationTx(ctx context.Context, params ClaimCreateParams, event OutboxEvent) (domain.Claim, error)
	GetByID(ctx context.Context, claimID uuid.UUID) (domain.Claim, error)
	GetActive(ctx context.Context, userID, dealID uuid.UUID) (domain.Claim, error)
	// MarkUsed transitions pending -> used with a state-guarded update and
	// stamps the verification metadata. Returns ErrClaimAlreadyVerified when
	// the guard finds no pending row.
	MarkUsed(ctx context.Context, claimID uuid.UUID, matchedLayer string, verifiedAt time.Time, event OutboxEvent) (domain.Claim, error)
	// SetBillAmount overwrites the bill and savings amounts on a used claim.
	SetBillAmount(ctx context.Context, claimID uuid.UUID, billCents, savingsCents int64, event OutboxEvent) (domain.Claim, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Claim, error)
	// SumSavings aggregates savings over used claims only; pending claims
	// contribute nothing anywhere savings are reported.
	SumSavings(ctx context.Context, userID uuid.UUID) (int64, error)
	// CountRedemptionsByVendor counts used claims per deal for one vendor.
	CountRedemptionsByVendor(ctx context.Context, vendorID uuid.UUID) (map[uuid.UUID]int64, error)
}

// AttemptRepository is the audit sink for verification attempts. Writes are
// best-effort from the caller's perspective: a failed insert is logged as an
// operational error and never blocks the verification result.
type AttemptRepository interface {
	Insert(ctx context.Context, attempt domain.VerificationAttempt) error
	ListByDeal(ctx context.Context, dealID uuid.UUID, limit, offset int) ([]domain.VerificationAttempt, error)
}

// OutboxEvent is the write-side event payload prior to storage. It is
// adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry metadata.
type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	LastError    *string
	CreatedAt    time.Time
	PublishedAt  *time.Time
	LastErrorAt  *time.Time
}

// OutboxRepository controls the publish-retry workflow for claim lifecycle
// events without leaking database details into the worker.
type OutboxRepository interface {
	// FetchUnpublished returns pending records below the retry ceiling, oldest
	// first. Records at the ceiling stay in the table for manual inspection.
	FetchUnpublished(ctx context.Context, limit, maxRetries int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
