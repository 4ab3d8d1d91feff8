package pincode

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDerive(t *testing.T) {
	t.Parallel()

	dealID := uuid.MustParse("a3d9f1c2-5b7e-4d08-9c61-2f84e0ab7d13")
	secret := []byte("0123456789abcdef0123456789abcdef")
	windowStart := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	code := Derive(dealID, secret, windowStart)
	if len(code) != CodeDigits {
		t.Fatalf("code length = %d, want %d", len(code), CodeDigits)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("code %q contains a non-digit", code)
		}
	}

	if again := Derive(dealID, secret, windowStart); again != code {
		t.Errorf("derive not deterministic: %q then %q", code, again)
	}
	if mid := Derive(dealID, secret, windowStart.Add(10*time.Minute)); mid == "" {
		t.Error("derive with unaligned instant returned empty code")
	}
}

func TestWindowStart(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 14, 10, 29, 59, 0, time.UTC), time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC), time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)},
		{time.Date(2026, 3, 14, 10, 45, 12, 0, time.UTC), time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := WindowStart(tc.in); !got.Equal(tc.want) {
			t.Errorf("WindowStart(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()

	dealID := uuid.MustParse("a3d9f1c2-5b7e-4d08-9c61-2f84e0ab7d13")
	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Date(2026, 3, 14, 10, 12, 0, 0, time.UTC)
	start := WindowStart(now)

	got := Candidates(dealID, secret, now)
	if got[0] != Derive(dealID, secret, start) {
		t.Errorf("first candidate is not the current-window code")
	}
	if got[1] != Derive(dealID, secret, start.Add(-Window)) {
		t.Errorf("second candidate is not the previous-window code")
	}

	// Any instant inside the same window yields the same candidate pair.
	later := Candidates(dealID, secret, now.Add(17*time.Minute))
	if later != got {
		t.Errorf("candidates changed within one window: %v then %v", got, later)
	}
}
