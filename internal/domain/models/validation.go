package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// ValidationInput is the library-level validation request shape.
type ValidationInput struct {
	KeyID     string
	Signature string
	Secret    string
	Timestamp int64
	UseCache  bool
}

// ValidationResult is the discriminated outcome of a validation. A false Valid
// is an evaluated verdict; "could not evaluate" conditions are errors instead.
type ValidationResult struct {
	Valid  bool `json:"valid"`
	Cached bool `json:"cached"`
}

// BatchResult is one positional entry of a batch validation. Exactly one of
// Result or Err is meaningful; an error in one entry never aborts the others.
type BatchResult struct {
	KeyID  string
	Result ValidationResult
	Err    error
}

// Fingerprint derives the deterministic cache key for a validation attempt.
// Two validations of the same (key, signature, timestamp) triple collapse to
// the same fingerprint and therefore the same cached outcome; a replay within
// the cache TTL is served from cache rather than re-verified. That collapse is
// a deliberate trade-off, not an oversight.
func Fingerprint(keyID, signature string, timestamp int64) string {
	h := sha256.New()
	h.Write([]byte(keyID))
	h.Write([]byte{'|'})
	h.Write([]byte(signature))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
