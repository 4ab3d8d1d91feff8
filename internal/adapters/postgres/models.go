package postgres

import (
	"time"

	"github.com/google/uuid"
)

type dealModel struct {
	DealID             uuid.UUID  `gorm:"column:deal_id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID           uuid.UUID  `gorm:"column:vendor_id"`
	Title              string     `gorm:"column:title"`
	DiscountPercent    int        `gorm:"column:discount_percent"`
	ValidFrom          time.Time  `gorm:"column:valid_from"`
	ValidUntil         time.Time  `gorm:"column:valid_until"`
	MaxRedemptions     *int       `gorm:"column:max_redemptions"`
	CurrentRedemptions int        `gorm:"column:current_redemptions"`
	RequiredTier       string     `gorm:"column:required_tier"`
	IsActive           bool       `gorm:"column:is_active"`
	IsApproved         bool       `gorm:"column:is_approved"`
	Latitude           float64    `gorm:"column:latitude"`
	Longitude          float64    `gorm:"column:longitude"`
	LastRedeemedAt     *time.Time `gorm:"column:last_redeemed_at"`
	PinHash            *string    `gorm:"column:pin_hash"`
	PinHashCreatedAt   *time.Time `gorm:"column:pin_hash_created_at"`
	PinLegacy          *string    `gorm:"column:pin_legacy"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (dealModel) TableName() string { return "deals" }

type claimModel struct {
	ClaimID         uuid.UUID  `gorm:"column:claim_id;type:uuid;default:gen_random_uuid();primaryKey"`
	DealID          uuid.UUID  `gorm:"column:deal_id"`
	UserID          uuid.UUID  `gorm:"column:user_id"`
	State           string     `gorm:"column:state"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	VerifiedAt      *time.Time `gorm:"column:verified_at"`
	MatchedLayer    string     `gorm:"column:matched_layer"`
	BillAmountCents *int64     `gorm:"column:bill_amount_cents"`
	SavingsCents    *int64     `gorm:"column:savings_cents"`
}

func (claimModel) TableName() string { return "claims" }

type verificationAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	ClaimID       *uuid.UUID `gorm:"column:claim_id"`
	UserID        uuid.UUID  `gorm:"column:user_id"`
	DealID        uuid.UUID  `gorm:"column:deal_id"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
	SourceIP      *string    `gorm:"column:source_ip"`
	SubmittedCode string     `gorm:"column:submitted_code"`
	Outcome       string     `gorm:"column:outcome"`
	MatchedLayer  string     `gorm:"column:matched_layer"`
}

func (verificationAttemptModel) TableName() string { return "verification_attempts" }

type outboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
}

func (outboxModel) TableName() string { return "redemption_outbox" }
