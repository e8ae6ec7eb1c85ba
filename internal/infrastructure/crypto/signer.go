// Package crypto implements the HMAC signing and validation engine.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

// Signer computes HMAC-SHA256 signatures over the canonical validation
// message. Signing is a pure function of (keyID, secret, timestamp): the same
// inputs always produce the same signature. No secret material ever appears
// in an error path because Sign cannot fail.
type Signer struct{}

// NewSigner returns a Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign returns the hex-encoded HMAC-SHA256 of the canonical message
// "<keyID>\n<timestamp>", keyed by secret.
func (s *Signer) Sign(keyID, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(keyID))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEqual compares two signatures in constant time. Both operands
// are hashed to a fixed width first, so the comparison cost does not depend
// on where the first differing byte occurs nor on a length mismatch.
func ConstantTimeEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
