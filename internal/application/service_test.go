package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/domain"
	"github.com/dealspot/redemption-engine/internal/pincode"
	"github.com/dealspot/redemption-engine/internal/ports"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeDealRepo struct {
	mu    sync.Mutex
	deals map[uuid.UUID]*domain.Deal
}

func newFakeDealRepo() *fakeDealRepo {
	return &fakeDealRepo{deals: map[uuid.UUID]*domain.Deal{}}
}

func (r *fakeDealRepo) GetByID(_ context.Context, dealID uuid.UUID) (domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deal, ok := r.deals[dealID]
	if !ok {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	return *deal, nil
}

func (r *fakeDealRepo) ReserveSlot(_ context.Context, dealID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deal, ok := r.deals[dealID]
	if !ok {
		return false, domain.ErrDealNotFound
	}
	if deal.FullyRedeemed() {
		return false, nil
	}
	deal.CurrentRedemptions++
	return true, nil
}

func (r *fakeDealRepo) TouchLastRedeemed(_ context.Context, dealID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if deal, ok := r.deals[dealID]; ok {
		t := at
		deal.LastRedeemedAt = &t
	}
	return nil
}

func (r *fakeDealRepo) ListNearbyCandidates(_ context.Context, _, _, _ float64, _ time.Time) ([]domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Deal, 0, len(r.deals))
	for _, deal := range r.deals {
		out = append(out, *deal)
	}
	return out, nil
}

type fakeClaimRepo struct {
	mu     sync.Mutex
	deals  *fakeDealRepo
	claims map[uuid.UUID]*domain.Claim
	events []ports.OutboxEvent
}

func newFakeClaimRepo(deals *fakeDealRepo) *fakeClaimRepo {
	return &fakeClaimRepo{deals: deals, claims: map[uuid.UUID]*domain.Claim{}}
}

func (r *fakeClaimRepo) CreateWithReservationTx(ctx context.Context, params ports.ClaimCreateParams, event ports.OutboxEvent) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.UserID == params.UserID && c.DealID == params.DealID && c.Active() {
			return domain.Claim{}, domain.ErrClaimAlreadyExists
		}
	}

	reserved, err := r.deals.ReserveSlot(ctx, params.DealID)
	if err != nil {
		return domain.Claim{}, err
	}
	if !reserved {
		return domain.Claim{}, domain.ErrDealFullyRedeemed
	}

	claim := &domain.Claim{
		ClaimID:   uuid.New(),
		DealID:    params.DealID,
		UserID:    params.UserID,
		State:     domain.ClaimPending,
		CreatedAt: params.CreatedAt,
	}
	r.claims[claim.ClaimID] = claim
	r.events = append(r.events, event)
	return *claim, nil
}

func (r *fakeClaimRepo) GetByID(_ context.Context, claimID uuid.UUID) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.claims[claimID]
	if !ok {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	return *claim, nil
}

func (r *fakeClaimRepo) GetActive(_ context.Context, userID, dealID uuid.UUID) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.claims {
		if c.UserID == userID && c.DealID == dealID && c.Active() {
			return *c, nil
		}
	}
	return domain.Claim{}, domain.ErrClaimNotFound
}

func (r *fakeClaimRepo) MarkUsed(_ context.Context, claimID uuid.UUID, matchedLayer string, verifiedAt time.Time, event ports.OutboxEvent) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.claims[claimID]
	if !ok {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	if claim.State != domain.ClaimPending {
		return domain.Claim{}, domain.ErrClaimAlreadyVerified
	}
	claim.State = domain.ClaimUsed
	claim.MatchedLayer = matchedLayer
	t := verifiedAt
	claim.VerifiedAt = &t
	r.events = append(r.events, event)
	return *claim, nil
}

func (r *fakeClaimRepo) SetBillAmount(_ context.Context, claimID uuid.UUID, billCents, savingsCents int64, event ports.OutboxEvent) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.claims[claimID]
	if !ok {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	if claim.State != domain.ClaimUsed {
		return domain.Claim{}, domain.ErrClaimNotVerified
	}
	claim.BillAmountCents = &billCents
	claim.SavingsCents = &savingsCents
	r.events = append(r.events, event)
	return *claim, nil
}

func (r *fakeClaimRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Claim, 0)
	for _, c := range r.claims {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeClaimRepo) SumSavings(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, c := range r.claims {
		if c.UserID == userID && c.State == domain.ClaimUsed && c.SavingsCents != nil {
			total += *c.SavingsCents
		}
	}
	return total, nil
}

func (r *fakeClaimRepo) CountRedemptionsByVendor(ctx context.Context, vendorID uuid.UUID) (map[uuid.UUID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uuid.UUID]int64{}
	for _, c := range r.claims {
		if c.State != domain.ClaimUsed {
			continue
		}
		deal, ok := r.deals.deals[c.DealID]
		if !ok || deal.VendorID != vendorID {
			continue
		}
		out[c.DealID]++
	}
	return out, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.VerificationAttempt
}

func (r *fakeAttemptRepo) Insert(_ context.Context, attempt domain.VerificationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *fakeAttemptRepo) ListByDeal(_ context.Context, dealID uuid.UUID, limit, offset int) ([]domain.VerificationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.VerificationAttempt, 0)
	for _, a := range r.attempts {
		if a.DealID == dealID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, a.Outcome)
	}
	return out
}

type fakeLimitStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeLimitStore() *fakeLimitStore {
	return &fakeLimitStore{counts: map[string]int64{}}
}

func (s *fakeLimitStore) Incr(_ context.Context, key string, window time.Duration, now time.Time) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := fmt.Sprintf("%s|%d|%d", key, window, now.UTC().Truncate(window).Unix())
	s.counts[bucket]++
	return s.counts[bucket], nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(pin string) (string, error) { return "hashed:" + pin, nil }

func (fakeHasher) Compare(hash, pin string) error {
	if hash == "hashed:"+pin {
		return nil
	}
	return errors.New("mismatch")
}

type fakeSecrets struct{}

func (fakeSecrets) RotatingSecret() []byte { return testSecret }

type fixture struct {
	svc      *Service
	deals    *fakeDealRepo
	claims   *fakeClaimRepo
	attempts *fakeAttemptRepo
	store    *fakeLimitStore
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	deals := newFakeDealRepo()
	claims := newFakeClaimRepo(deals)
	attempts := &fakeAttemptRepo{}
	store := newFakeLimitStore()

	svc := NewService(Dependencies{
		Deals:     deals,
		Claims:    claims,
		Attempts:  attempts,
		RateLimit: store,
		Hasher:    fakeHasher{},
		Secrets:   fakeSecrets{},
	})

	now := time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return now }

	return &fixture{svc: svc, deals: deals, claims: claims, attempts: attempts, store: store, now: now}
}

func (f *fixture) addDeal(mutate func(*domain.Deal)) uuid.UUID {
	deal := &domain.Deal{
		DealID:          uuid.New(),
		VendorID:        uuid.New(),
		Title:           "test deal",
		DiscountPercent: 20,
		ValidFrom:       f.now.Add(-24 * time.Hour),
		ValidUntil:      f.now.Add(24 * time.Hour),
		RequiredTier:    domain.TierBasic,
		IsActive:        true,
		IsApproved:      true,
	}
	if mutate != nil {
		mutate(deal)
	}
	f.deals.deals[deal.DealID] = deal
	return deal.DealID
}

func intPtr(n int) *int { return &n }

func TestCreateClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reserves a pending claim", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(nil)
		userID := uuid.New()

		claim, err := f.svc.CreateClaim(ctx, userID, domain.TierBasic, dealID)
		if err != nil {
			t.Fatalf("CreateClaim: %v", err)
		}
		if claim.State != domain.ClaimPending {
			t.Errorf("state = %q, want pending", claim.State)
		}
		if got := f.deals.deals[dealID].CurrentRedemptions; got != 1 {
			t.Errorf("current redemptions = %d, want 1", got)
		}
		if len(f.claims.events) != 1 || f.claims.events[0].EventType != "claim.created" {
			t.Errorf("expected one claim.created outbox event, got %+v", f.claims.events)
		}
	})

	t.Run("rejects a duplicate active claim", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(nil)
		userID := uuid.New()

		if _, err := f.svc.CreateClaim(ctx, userID, domain.TierBasic, dealID); err != nil {
			t.Fatalf("first CreateClaim: %v", err)
		}
		_, err := f.svc.CreateClaim(ctx, userID, domain.TierBasic, dealID)
		if !errors.Is(err, domain.ErrClaimAlreadyExists) {
			t.Fatalf("err = %v, want ErrClaimAlreadyExists", err)
		}
		if got := f.deals.deals[dealID].CurrentRedemptions; got != 1 {
			t.Errorf("current redemptions = %d, want 1 after rejected duplicate", got)
		}
	})

	t.Run("never oversells a capped deal", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.MaxRedemptions = intPtr(1) })

		if _, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID); err != nil {
			t.Fatalf("first CreateClaim: %v", err)
		}
		_, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID)
		if !errors.Is(err, domain.ErrDealFullyRedeemed) {
			t.Fatalf("err = %v, want ErrDealFullyRedeemed", err)
		}
		if got := f.deals.deals[dealID].CurrentRedemptions; got != 1 {
			t.Errorf("current redemptions = %d, want 1", got)
		}
	})

	t.Run("concurrent claimants cannot oversell", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.MaxRedemptions = intPtr(1) })

		const claimants = 16
		errs := make(chan error, claimants)
		var wg sync.WaitGroup
		for i := 0; i < claimants; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var won, turnedAway int
		for err := range errs {
			switch {
			case err == nil:
				won++
			case errors.Is(err, domain.ErrDealFullyRedeemed):
				turnedAway++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		if won != 1 || turnedAway != claimants-1 {
			t.Errorf("winners = %d, turned away = %d, want 1 and %d", won, turnedAway, claimants-1)
		}
		if got := f.deals.deals[dealID].CurrentRedemptions; got != 1 {
			t.Errorf("current redemptions = %d, want 1", got)
		}
	})

	t.Run("gates on membership tier", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.RequiredTier = domain.TierPremium })

		_, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID)
		if !errors.Is(err, domain.ErrMembershipInsufficient) {
			t.Fatalf("err = %v, want ErrMembershipInsufficient", err)
		}
		var me *domain.MembershipError
		if !errors.As(err, &me) {
			t.Fatalf("err = %T, want *MembershipError", err)
		}
		if me.Required != domain.TierPremium || me.Current != domain.TierBasic {
			t.Errorf("membership error = %+v", me)
		}

		if _, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierUltimate, dealID); err != nil {
			t.Errorf("ultimate tier should clear a premium gate: %v", err)
		}
	})

	t.Run("rejects inactive and out-of-window deals", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		inactive := f.addDeal(func(d *domain.Deal) { d.IsActive = false })
		expired := f.addDeal(func(d *domain.Deal) { d.ValidUntil = f.now.Add(-time.Minute) })

		if _, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, inactive); !errors.Is(err, domain.ErrDealInactive) {
			t.Errorf("inactive: err = %v, want ErrDealInactive", err)
		}
		if _, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, expired); !errors.Is(err, domain.ErrDealInactive) {
			t.Errorf("expired: err = %v, want ErrDealInactive", err)
		}
	})

	t.Run("unknown deal", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, uuid.New())
		if !errors.Is(err, domain.ErrDealNotFound) {
			t.Fatalf("err = %v, want ErrDealNotFound", err)
		}
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	claimDeal := func(t *testing.T, f *fixture, dealID uuid.UUID) domain.Claim {
		t.Helper()
		claim, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID)
		if err != nil {
			t.Fatalf("CreateClaim: %v", err)
		}
		return claim
	}

	t.Run("accepts the current rotating code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(nil)
		claim := claimDeal(t, f, dealID)

		code := pincode.Derive(dealID, testSecret, pincode.WindowStart(f.now))
		updated, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, code, "203.0.113.9")
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if updated.State != domain.ClaimUsed || updated.MatchedLayer != domain.LayerRotating {
			t.Errorf("claim = %+v, want used via rotating layer", updated)
		}
		if f.deals.deals[dealID].LastRedeemedAt == nil {
			t.Error("last redeemed timestamp not touched")
		}
		if got := f.attempts.outcomes(); len(got) != 1 || got[0] != domain.OutcomeMatchedRotating {
			t.Errorf("attempt outcomes = %v", got)
		}
	})

	t.Run("accepts the previous window, rejects two back", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(nil)

		previous := pincode.Derive(dealID, testSecret, pincode.WindowStart(f.now).Add(-pincode.Window))
		claim := claimDeal(t, f, dealID)
		if _, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, previous, ""); err != nil {
			t.Fatalf("previous-window code rejected: %v", err)
		}

		dealID2 := f.addDeal(nil)
		claim2 := claimDeal(t, f, dealID2)
		stale := pincode.Derive(dealID2, testSecret, pincode.WindowStart(f.now).Add(-2*pincode.Window))
		if _, err := f.svc.Verify(ctx, claim2.UserID, claim2.ClaimID, stale, ""); !errors.Is(err, domain.ErrPinMismatch) {
			t.Fatalf("stale code: err = %v, want ErrPinMismatch", err)
		}
	})

	t.Run("hashed layer wins over legacy", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) {
			d.Pin.Hashed = &domain.HashedPin{Hash: "hashed:4821", CreatedAt: f.now.Add(-time.Hour)}
			d.Pin.Legacy = "4821"
		})
		claim := claimDeal(t, f, dealID)

		updated, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", "")
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if updated.MatchedLayer != domain.LayerHashed {
			t.Errorf("matched layer = %q, want hashed", updated.MatchedLayer)
		}
	})

	t.Run("expired hashed material falls through to legacy", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) {
			d.Pin.Hashed = &domain.HashedPin{Hash: "hashed:4821", CreatedAt: f.now.Add(-domain.HashedPinValidity - time.Hour)}
			d.Pin.Legacy = "4821"
		})
		claim := claimDeal(t, f, dealID)

		updated, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", "")
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if updated.MatchedLayer != domain.LayerLegacy {
			t.Errorf("matched layer = %q, want legacy", updated.MatchedLayer)
		}
	})

	t.Run("verification is terminal", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.Pin.Legacy = "4821" })
		claim := claimDeal(t, f, dealID)

		if _, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", ""); err != nil {
			t.Fatalf("first Verify: %v", err)
		}
		_, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", "")
		if !errors.Is(err, domain.ErrClaimAlreadyVerified) {
			t.Fatalf("second Verify: err = %v, want ErrClaimAlreadyVerified", err)
		}
	})

	t.Run("hides another customer's claim", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.Pin.Legacy = "4821" })
		claim := claimDeal(t, f, dealID)

		_, err := f.svc.Verify(ctx, uuid.New(), claim.ClaimID, "4821", "")
		if !errors.Is(err, domain.ErrClaimNotFound) {
			t.Fatalf("foreign caller: err = %v, want ErrClaimNotFound", err)
		}
		if got, err := f.claims.GetByID(ctx, claim.ClaimID); err != nil || got.State != domain.ClaimPending {
			t.Errorf("claim state = %v/%v, want still pending", got.State, err)
		}
	})

	t.Run("rate limits after the hourly ceiling", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.Pin.Legacy = "4821" })
		claim := claimDeal(t, f, dealID)

		for i := 0; i < 5; i++ {
			if _, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "0000", "198.51.100.7"); !errors.Is(err, domain.ErrPinMismatch) {
				t.Fatalf("attempt %d: err = %v, want ErrPinMismatch", i+1, err)
			}
		}
		_, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", "198.51.100.7")
		if !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("sixth attempt: err = %v, want ErrRateLimited", err)
		}
		var rl *domain.RateLimitedError
		if !errors.As(err, &rl) || rl.RetryAfter <= 0 {
			t.Fatalf("expected retry-after hint, got %v", err)
		}

		outcomes := f.attempts.outcomes()
		if len(outcomes) != 6 || outcomes[5] != domain.OutcomeRateLimited {
			t.Errorf("attempt outcomes = %v", outcomes)
		}
	})

	t.Run("failing limiter store denies verification", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.Pin.Legacy = "4821" })
		claim := claimDeal(t, f, dealID)

		f.store.err = errors.New("redis down")
		if _, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", ""); err == nil {
			t.Fatal("expected error when the limiter store is unavailable")
		}
		if got, err := f.claims.GetByID(ctx, claim.ClaimID); err != nil || got.State != domain.ClaimPending {
			t.Errorf("claim state = %v/%v, want still pending", got.State, err)
		}
	})
}

func TestRecordBillAmount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("computes savings from the discount", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.Pin.Legacy = "4821" })
		claim, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID)
		if err != nil {
			t.Fatalf("CreateClaim: %v", err)
		}
		if _, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", ""); err != nil {
			t.Fatalf("Verify: %v", err)
		}

		billed, err := f.svc.RecordBillAmount(ctx, claim.UserID, claim.ClaimID, 500)
		if err != nil {
			t.Fatalf("RecordBillAmount: %v", err)
		}
		if billed.SavingsCents == nil || *billed.SavingsCents != 100 {
			t.Errorf("savings = %v, want 100", billed.SavingsCents)
		}
	})

	t.Run("rejects a pending claim", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(nil)
		claim, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID)
		if err != nil {
			t.Fatalf("CreateClaim: %v", err)
		}
		if _, err := f.svc.RecordBillAmount(ctx, claim.UserID, claim.ClaimID, 500); !errors.Is(err, domain.ErrClaimNotVerified) {
			t.Fatalf("err = %v, want ErrClaimNotVerified", err)
		}
	})

	t.Run("hides another customer's claim", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		dealID := f.addDeal(func(d *domain.Deal) { d.Pin.Legacy = "4821" })
		claim, err := f.svc.CreateClaim(ctx, uuid.New(), domain.TierBasic, dealID)
		if err != nil {
			t.Fatalf("CreateClaim: %v", err)
		}
		if _, err := f.svc.Verify(ctx, claim.UserID, claim.ClaimID, "4821", ""); err != nil {
			t.Fatalf("Verify: %v", err)
		}

		if _, err := f.svc.RecordBillAmount(ctx, uuid.New(), claim.ClaimID, 500); !errors.Is(err, domain.ErrClaimNotFound) {
			t.Fatalf("foreign caller: err = %v, want ErrClaimNotFound", err)
		}
		if got, err := f.claims.GetByID(ctx, claim.ClaimID); err != nil || got.BillAmountCents != nil {
			t.Errorf("bill = %v/%v, want unset", got.BillAmountCents, err)
		}
	})

	t.Run("rejects a negative bill", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		if _, err := f.svc.RecordBillAmount(ctx, uuid.New(), uuid.New(), -1); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestCustomerSavingsExcludesPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	userID := uuid.New()

	billedDeal := f.addDeal(func(d *domain.Deal) { d.Pin.Legacy = "1111" })
	pendingDeal := f.addDeal(nil)

	claim, err := f.svc.CreateClaim(ctx, userID, domain.TierBasic, billedDeal)
	if err != nil {
		t.Fatalf("CreateClaim: %v", err)
	}
	if _, err := f.svc.Verify(ctx, userID, claim.ClaimID, "1111", ""); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := f.svc.RecordBillAmount(ctx, userID, claim.ClaimID, 1000); err != nil {
		t.Fatalf("RecordBillAmount: %v", err)
	}
	if _, err := f.svc.CreateClaim(ctx, userID, domain.TierBasic, pendingDeal); err != nil {
		t.Fatalf("CreateClaim pending: %v", err)
	}

	total, err := f.svc.CustomerSavings(ctx, userID)
	if err != nil {
		t.Fatalf("CustomerSavings: %v", err)
	}
	if total != 200 {
		t.Errorf("total savings = %d, want 200 (20%% of 1000)", total)
	}
}

// Mirrors the canonical claim-verify-bill walkthrough: a capped deal is
// claimed, a second customer is turned away, the hashed PIN verifies the
// visit, the bill settles the savings, and re-verification is refused.
func TestClaimLifecycleScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	dealID := f.addDeal(func(d *domain.Deal) {
		d.MaxRedemptions = intPtr(1)
		d.DiscountPercent = 20
		d.Pin.Hashed = &domain.HashedPin{Hash: "hashed:4821", CreatedAt: f.now.Add(-24 * time.Hour)}
	})
	userU := uuid.New()
	userV := uuid.New()

	c1, err := f.svc.CreateClaim(ctx, userU, domain.TierBasic, dealID)
	if err != nil {
		t.Fatalf("U claims: %v", err)
	}
	if f.deals.deals[dealID].CurrentRedemptions != 1 {
		t.Fatalf("current redemptions = %d, want 1", f.deals.deals[dealID].CurrentRedemptions)
	}

	if _, err := f.svc.CreateClaim(ctx, userV, domain.TierBasic, dealID); !errors.Is(err, domain.ErrDealFullyRedeemed) {
		t.Fatalf("V claims: err = %v, want ErrDealFullyRedeemed", err)
	}

	used, err := f.svc.Verify(ctx, userU, c1.ClaimID, "4821", "192.0.2.1")
	if err != nil {
		t.Fatalf("U verifies: %v", err)
	}
	if used.State != domain.ClaimUsed || used.MatchedLayer != domain.LayerHashed {
		t.Fatalf("claim after verify = %+v", used)
	}

	billed, err := f.svc.RecordBillAmount(ctx, userU, c1.ClaimID, 500)
	if err != nil {
		t.Fatalf("U bills: %v", err)
	}
	if billed.SavingsCents == nil || *billed.SavingsCents != 100 {
		t.Fatalf("savings = %v, want 100", billed.SavingsCents)
	}

	if _, err := f.svc.Verify(ctx, userU, c1.ClaimID, "4821", "192.0.2.1"); !errors.Is(err, domain.ErrClaimAlreadyVerified) {
		t.Fatalf("repeat verify: err = %v, want ErrClaimAlreadyVerified", err)
	}

	types := make([]string, 0, len(f.claims.events))
	for _, ev := range f.claims.events {
		types = append(types, ev.EventType)
	}
	want := []string{"claim.created", "claim.verified", "claim.billed"}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event types = %v, want %v", types, want)
		}
	}
}

func TestCheckAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	open := f.addDeal(nil)
	gated := f.addDeal(func(d *domain.Deal) { d.RequiredTier = domain.TierUltimate })
	full := f.addDeal(func(d *domain.Deal) {
		d.MaxRedemptions = intPtr(2)
		d.CurrentRedemptions = 2
	})

	cases := []struct {
		name    string
		dealID  uuid.UUID
		tier    domain.MembershipTier
		allowed bool
		reason  string
	}{
		{"open deal", open, domain.TierBasic, true, ""},
		{"tier gated", gated, domain.TierPremium, false, "membership_insufficient"},
		{"fully redeemed", full, domain.TierBasic, false, "deal_fully_redeemed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, reason, err := f.svc.CheckAccess(ctx, tc.tier, tc.dealID)
			if err != nil {
				t.Fatalf("CheckAccess: %v", err)
			}
			if allowed != tc.allowed || reason != tc.reason {
				t.Errorf("allowed/reason = %v/%q, want %v/%q", allowed, reason, tc.allowed, tc.reason)
			}
		})
	}

	if _, _, err := f.svc.CheckAccess(ctx, domain.TierBasic, uuid.New()); !errors.Is(err, domain.ErrDealNotFound) {
		t.Errorf("unknown deal: err = %v, want ErrDealNotFound", err)
	}
}
