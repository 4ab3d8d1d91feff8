package security

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptPinHasher hashes vendor PINs with bcrypt. Cost is configurable so it
// can be lowered in test environments.
type BcryptPinHasher struct {
	cost int
}

func NewBcryptPinHasher(cost int) *BcryptPinHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPinHasher{cost: cost}
}

func (h *BcryptPinHasher) Hash(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptPinHasher) Compare(hash, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
}
