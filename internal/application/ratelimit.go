package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/domain"
	"github.com/dealspot/redemption-engine/internal/ports"
)

// RateLimiter bounds verification attempts per (user, deal) and per source IP
// to blunt PIN guessing, including distributed guessing from one account pool.
// Counters live in the shared store, so the ceilings hold across instances.
type RateLimiter struct {
	store       ports.RateLimitStore
	hourlyLimit int
	dailyLimit  int
}

func NewRateLimiter(store ports.RateLimitStore, hourlyLimit, dailyLimit int) *RateLimiter {
	return &RateLimiter{store: store, hourlyLimit: hourlyLimit, dailyLimit: dailyLimit}
}

// CheckAndRecord counts this attempt against every applicable ceiling and
// reports whether it may proceed. The attempt is counted even when denied.
// retryAfter is the time until the tightest exceeded window rolls over.
func (l *RateLimiter) CheckAndRecord(ctx context.Context, userID, dealID uuid.UUID, sourceIP string, now time.Time) (allowed bool, retryAfter time.Duration, err error) {
	type ceiling struct {
		key    string
		window time.Duration
		limit  int
	}

	pairKey := fmt.Sprintf("user:%s:deal:%s", userID, dealID)
	ceilings := []ceiling{
		{pairKey, time.Hour, l.hourlyLimit},
		{pairKey, 24 * time.Hour, l.dailyLimit},
	}
	if sourceIP != "" {
		ceilings = append(ceilings,
			ceiling{"ip:" + sourceIP, time.Hour, l.hourlyLimit},
			ceiling{"ip:" + sourceIP, 24 * time.Hour, l.dailyLimit},
		)
	}

	allowed = true
	for _, c := range ceilings {
		count, incErr := l.store.Incr(ctx, c.key, c.window, now)
		if incErr != nil {
			return false, 0, incErr
		}
		if count > int64(c.limit) {
			allowed = false
			remaining := windowRemaining(now, c.window)
			if retryAfter == 0 || remaining < retryAfter {
				retryAfter = remaining
			}
		}
	}
	return allowed, retryAfter, nil
}

func windowRemaining(now time.Time, window time.Duration) time.Duration {
	return now.Truncate(window).Add(window).Sub(now)
}

// Denied builds the typed error surfaced to the API layer so the client can
// show a cooldown message instead of "wrong PIN".
func (l *RateLimiter) Denied(retryAfter time.Duration) error {
	return &domain.RateLimitedError{RetryAfter: retryAfter}
}
