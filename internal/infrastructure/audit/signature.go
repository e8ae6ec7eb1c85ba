package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/keyforge/keyforge/internal/domain/models"
)

// SignEntry computes the HMAC-SHA256 signature of an audit entry. Entries
// that leave the process (Kafka, Postgres archive) carry this signature so
// downstream consumers can detect tampering.
func SignEntry(entry models.AuditEntry, secretKey string) (string, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// VerifyEntry reports whether the signature matches the entry under the key.
func VerifyEntry(entry models.AuditEntry, secretKey, signature string) (bool, error) {
	expected, err := SignEntry(entry, secretKey)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}
