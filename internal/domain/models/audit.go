package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/keyforge/keyforge/pkg/constants"
)

// AuditEntry is one immutable record in the append-only audit trail. Entries
// are never mutated or removed once appended; ordering is insertion order,
// which for concurrent operations is completion order.
type AuditEntry struct {
	ID        uuid.UUID             `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	Action    constants.AuditAction `json:"action"`
	KeyID     string                `json:"key_id"`
	Detail    string                `json:"detail,omitempty"`
}

// NewAuditEntry creates an audit entry stamped at the given instant.
func NewAuditEntry(action constants.AuditAction, keyID, detail string, at time.Time) AuditEntry {
	return AuditEntry{
		ID:        uuid.New(),
		Timestamp: at.UTC(),
		Action:    action,
		KeyID:     keyID,
		Detail:    detail,
	}
}
