package ports

import (
	"time"

	"github.com/google/uuid"
)

// PinHasher hashes and compares static PIN material. Compare must be
// constant-time for equal-cost inputs.
type PinHasher interface {
	Hash(pin string) (string, error)
	Compare(hash, pin string) error
}

// SecretProvider supplies the rotating-code HMAC key. Rotating this secret
// invalidates all in-flight rotating codes; coordination of the rotation is
// outside this service.
type SecretProvider interface {
	RotatingSecret() []byte
}

// AuthClaims is the authenticated caller identity carried by customer tokens.
// Tier travels in the token so the membership gate needs no extra lookup.
type AuthClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	Tier      string    `json:"tier"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	KeyID     string    `json:"kid"`
}

// TokenSigner signs and validates customer tokens.
type TokenSigner interface {
	Sign(claims AuthClaims) (string, error)
	ParseAndValidate(token string) (AuthClaims, error)
}
