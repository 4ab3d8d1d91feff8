package application

import (
	"time"

	"github.com/dealspot/redemption-engine/internal/domain"
	"github.com/dealspot/redemption-engine/internal/pincode"
	"github.com/dealspot/redemption-engine/internal/ports"
)

// PinVerifier runs the layered credential check. Three PIN generations coexist
// while deals migrate: the rotating window code, hashed-static material, and
// pre-migration plaintext. Layers are tried in that fixed priority order and
// the first match wins, so a rotating code that coincidentally equals the
// legacy PIN still reports the rotating layer.
type PinVerifier struct {
	hasher  ports.PinHasher
	secrets ports.SecretProvider
}

func NewPinVerifier(hasher ports.PinHasher, secrets ports.SecretProvider) *PinVerifier {
	return &PinVerifier{hasher: hasher, secrets: secrets}
}

// Verify returns the layer that matched the submitted code, or ok=false when
// no present layer matched. Expired hashed material is skipped, not renewed.
func (v *PinVerifier) Verify(deal domain.Deal, submittedCode string, now time.Time) (layer string, ok bool) {
	for _, candidate := range pincode.Candidates(deal.DealID, v.secrets.RotatingSecret(), now) {
		if submittedCode == candidate {
			return domain.LayerRotating, true
		}
	}

	if hp := deal.Pin.Hashed; hp != nil && !hp.Expired(now) {
		if err := v.hasher.Compare(hp.Hash, submittedCode); err == nil {
			return domain.LayerHashed, true
		}
	}

	if deal.Pin.Legacy != "" && submittedCode == deal.Pin.Legacy {
		return domain.LayerLegacy, true
	}

	return "", false
}
