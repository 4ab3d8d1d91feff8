package ports

import (
	"context"
	"time"
)

// RateLimitStore tracks attempt counts per key and window bucket. The store
// must be shared across instances (Redis in production) or the ceilings are
// only enforced per-instance. Fixed window buckets are acceptable: burst at a
// boundary stays within twice the stated ceiling.
type RateLimitStore interface {
	// Incr adds one attempt under the key's bucket for the given window and
	// returns the new count. The bucket expires with the window.
	Incr(ctx context.Context, key string, window time.Duration, now time.Time) (int64, error)
}
