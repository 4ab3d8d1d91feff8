package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDealNotFound is returned when the requested deal does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404.
	ErrDealNotFound = errors.New("deal not found")
	// ErrDealInactive covers unapproved, deactivated, and out-of-window deals.
	ErrDealInactive = errors.New("deal inactive or expired")
	// ErrDealFullyRedeemed signals the capacity cap is exhausted.
	ErrDealFullyRedeemed = errors.New("deal fully redeemed")
	// ErrClaimAlreadyExists rejects a duplicate active claim for one (user, deal).
	ErrClaimAlreadyExists = errors.New("claim already exists")
	ErrClaimNotFound      = errors.New("claim not found")
	// ErrClaimAlreadyVerified is the idempotency violation: verifying a used
	// claim is rejected, never silently ignored or reprocessed.
	ErrClaimAlreadyVerified = errors.New("claim already verified")
	// ErrClaimNotVerified blocks bill recording against an unverified claim.
	ErrClaimNotVerified = errors.New("claim not verified")
	// ErrPinMismatch means no credential layer matched the submitted code.
	// It is distinct from ErrRateLimited so the client can tell "wrong PIN"
	// from "cool down".
	ErrPinMismatch = errors.New("pin mismatch")
	ErrRateLimited = errors.New("rate limited")
	// ErrMembershipInsufficient gates tier-restricted deals. It is wrapped in
	// a MembershipError carrying both tiers.
	ErrMembershipInsufficient = errors.New("membership insufficient")
	// ErrConcurrencyConflict means a reservation lost a race. Callers should
	// retry CreateClaim; the service itself retries a bounded number of times
	// before surfacing it.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
)

// MembershipError carries the tier the caller holds and the tier the deal
// requires, so the API layer can render an upgrade prompt.
type MembershipError struct {
	Current  MembershipTier
	Required MembershipTier
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("%v: have %s, need %s", ErrMembershipInsufficient, e.Current, e.Required)
}

func (e *MembershipError) Is(target error) bool {
	return target == ErrMembershipInsufficient
}

// RateLimitedError carries the cooldown hint for the denied attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
