package application

import (
	"log/slog"
	"time"

	"github.com/dealspot/redemption-engine/internal/geo"
	"github.com/dealspot/redemption-engine/internal/ports"
)

// Config holds the tunables of the redemption engine.
type Config struct {
	// HourlyAttemptLimit and DailyAttemptLimit bound verification attempts per
	// (user, deal) and per source IP.
	HourlyAttemptLimit int
	DailyAttemptLimit  int
	// ReserveRetries bounds internal retries on reservation races before
	// ErrConcurrencyConflict is surfaced to the caller.
	ReserveRetries int
	// MaxNearbyRadiusKm caps the radius a listing request may ask for.
	MaxNearbyRadiusKm float64
	RankWeights       geo.Weights
}

// Service is the claim/redemption state machine and the only write path for
// claim state. UI and sibling services invoke these operations and display the
// returned states; they never infer claim state from cached client data.
type Service struct {
	cfg      Config
	deals    ports.DealRepository
	claims   ports.ClaimRepository
	attempts ports.AttemptRepository
	limiter  *RateLimiter
	verifier *PinVerifier
	logger   *slog.Logger
	nowFn    func() time.Time
}

type Dependencies struct {
	Config    Config
	Deals     ports.DealRepository
	Claims    ports.ClaimRepository
	Attempts  ports.AttemptRepository
	RateLimit ports.RateLimitStore
	Hasher    ports.PinHasher
	Secrets   ports.SecretProvider
	Logger    *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.HourlyAttemptLimit <= 0 {
		cfg.HourlyAttemptLimit = 5
	}
	if cfg.DailyAttemptLimit <= 0 {
		cfg.DailyAttemptLimit = 10
	}
	if cfg.ReserveRetries <= 0 {
		cfg.ReserveRetries = 3
	}
	if cfg.MaxNearbyRadiusKm <= 0 {
		cfg.MaxNearbyRadiusKm = 50
	}
	if cfg.RankWeights == (geo.Weights{}) {
		cfg.RankWeights = geo.DefaultWeights
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		deals:    deps.Deals,
		claims:   deps.Claims,
		attempts: deps.Attempts,
		limiter:  NewRateLimiter(deps.RateLimit, cfg.HourlyAttemptLimit, cfg.DailyAttemptLimit),
		verifier: NewPinVerifier(deps.Hasher, deps.Secrets),
		logger:   logger,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}
