// Package pincode derives time-windowed verification codes. A code is a pure
// function of the deal ID, a server-held secret, and the window start, so any
// process holding the secret can recompute it without per-deal storage.
package pincode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Window is how long one rotating code stays current. The verifier also
// accepts the immediately preceding window, so a leaked code is replayable for
// at most two windows.
const Window = 30 * time.Minute

// CodeDigits is the fixed length of a derived code.
const CodeDigits = 4

const codeModulus = 10000

// WindowStart truncates the given instant to the containing window boundary.
func WindowStart(now time.Time) time.Time {
	return now.UTC().Truncate(Window)
}

// Derive computes the code for a specific window start. Deterministic:
// HMAC-SHA256 over dealID || windowStartUnix, reduced mod 10000 and
// zero-padded to four digits.
func Derive(dealID uuid.UUID, secret []byte, windowStart time.Time) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(dealID[:])

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(windowStart.UTC().Unix()))
	mac.Write(ts[:])

	sum := mac.Sum(nil)
	n := binary.BigEndian.Uint32(sum[:4]) % codeModulus
	return fmt.Sprintf("%0*d", CodeDigits, n)
}

// Candidates returns the codes accepted at the given instant: the
// current-window code and the previous-window code. The one-window grace
// tolerates clock skew between code display and in-store entry; a code from
// two windows back must not appear here.
func Candidates(dealID uuid.UUID, secret []byte, now time.Time) [2]string {
	current := WindowStart(now)
	return [2]string{
		Derive(dealID, secret, current),
		Derive(dealID, secret, current.Add(-Window)),
	}
}
