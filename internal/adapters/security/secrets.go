package security

import (
	"errors"
)

// StaticSecretProvider serves the HMAC secret used to derive rotating PIN
// codes. The same secret must be configured on every instance and on the
// vendor-facing code display, or windows will never line up.
type StaticSecretProvider struct {
	secret []byte
}

func NewStaticSecretProvider(secret string) (*StaticSecretProvider, error) {
	if len(secret) < 16 {
		return nil, errors.New("rotating pin secret must be at least 16 bytes")
	}
	return &StaticSecretProvider{secret: []byte(secret)}, nil
}

func (p *StaticSecretProvider) RotatingSecret() []byte {
	return p.secret
}
