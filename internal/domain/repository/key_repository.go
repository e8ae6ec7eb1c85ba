// Package repository defines the persistence interfaces of the domain layer.
package repository

import (
	"context"
	"time"

	"github.com/keyforge/keyforge/internal/domain/models"
)

// KeyRepository is the key store contract. Implementations must keep revoked
// keys addressable (soft delete only) and keep List ordering stable by
// CreatedAt ascending. Mutations on distinct keys must not serialize through
// a single lock.
type KeyRepository interface {
	// Create stores a new key record. Returns a duplicate-key error when the
	// identifier already exists, even for a revoked key.
	Create(ctx context.Context, key *models.Key) error

	// Get returns the record for keyID, or a key-not-found error.
	Get(ctx context.Context, keyID string) (*models.Key, error)

	// List returns records ordered by CreatedAt ascending. With activeOnly,
	// revoked keys are excluded.
	List(ctx context.Context, activeOnly bool) ([]*models.Key, error)

	// Revoke flips the key to inactive. Returns false without error when the
	// key is unknown or already revoked. Must be linearizable with respect to
	// concurrent TouchLastUsed calls on the same key.
	Revoke(ctx context.Context, keyID string, at time.Time) (bool, error)

	// TouchLastUsed records a successful validation instant. Last writer wins.
	TouchLastUsed(ctx context.Context, keyID string, at time.Time) error
}
