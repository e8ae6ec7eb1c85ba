package models

import "time"

// Key is the record describing an API key: its identity, an opaque handle to
// its shared secret, caller-owned metadata, and lifecycle timestamps.
//
// The secret itself is never stored on the record; SecretRef is resolved
// through the configured SecretProvider at validation time.
type Key struct {
	// KeyID is the unique, immutable identity of the key.
	KeyID string `gorm:"primaryKey;column:key_id" json:"key_id"`

	// SecretRef is an opaque reference resolvable to the shared secret.
	// It is never logged and never cached in plaintext.
	SecretRef string `gorm:"column:secret_ref" json:"-"`

	// Metadata is an unrestricted string mapping owned by the caller.
	Metadata map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`

	// Active is false once the key has been revoked. Revocation is one-way.
	Active bool `json:"active"`

	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// TableName sets the GORM table name.
func (Key) TableName() string { return "api_keys" }

// Clone returns a deep copy so callers cannot mutate stored records.
func (k *Key) Clone() *Key {
	clone := *k
	if k.Metadata != nil {
		clone.Metadata = make(map[string]string, len(k.Metadata))
		for key, val := range k.Metadata {
			clone.Metadata[key] = val
		}
	}
	if k.RevokedAt != nil {
		t := *k.RevokedAt
		clone.RevokedAt = &t
	}
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		clone.LastUsedAt = &t
	}
	return &clone
}
