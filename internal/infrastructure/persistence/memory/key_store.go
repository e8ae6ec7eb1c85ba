// Package memory provides the in-memory KeyRepository implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/repository"
	"github.com/keyforge/keyforge/pkg/errors"
)

// keyEntry wraps a record with its own lock so mutations on distinct keys
// never serialize through a single global lock. The store-level RWMutex only
// guards the map structure itself.
type keyEntry struct {
	mu  sync.Mutex
	key *models.Key
}

// KeyStore is a concurrency-safe in-memory key repository. Revoked keys stay
// addressable; nothing is ever physically deleted.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[string]*keyEntry
}

// NewKeyStore returns an empty KeyStore.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]*keyEntry)}
}

// Create stores a new key record. Key identifiers are never reused, so a
// revoked record still blocks re-creation under the same identifier.
func (s *KeyStore) Create(ctx context.Context, key *models.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key.KeyID]; exists {
		return errors.ErrDuplicateKey(key.KeyID)
	}
	s.keys[key.KeyID] = &keyEntry{key: key.Clone()}
	return nil
}

// Get returns a copy of the record for keyID.
func (s *KeyStore) Get(ctx context.Context, keyID string) (*models.Key, error) {
	entry, err := s.entry(keyID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.key.Clone(), nil
}

// List returns copies of the records ordered by CreatedAt ascending, with
// KeyID as the tiebreaker so the order is fully deterministic.
func (s *KeyStore) List(ctx context.Context, activeOnly bool) ([]*models.Key, error) {
	s.mu.RLock()
	entries := make([]*keyEntry, 0, len(s.keys))
	for _, entry := range s.keys {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	out := make([]*models.Key, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if !activeOnly || entry.key.Active {
			out = append(out, entry.key.Clone())
		}
		entry.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].KeyID < out[j].KeyID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Revoke flips the key to inactive. Returns false for unknown or
// already-revoked keys. The per-entry lock makes the transition linearizable
// with respect to concurrent TouchLastUsed calls on the same key.
func (s *KeyStore) Revoke(ctx context.Context, keyID string, at time.Time) (bool, error) {
	s.mu.RLock()
	entry, ok := s.keys[keyID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.key.Active {
		return false, nil
	}
	revokedAt := at.UTC()
	entry.key.Active = false
	entry.key.RevokedAt = &revokedAt
	return true, nil
}

// TouchLastUsed records a successful validation. Last writer wins.
func (s *KeyStore) TouchLastUsed(ctx context.Context, keyID string, at time.Time) error {
	entry, err := s.entry(keyID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	usedAt := at.UTC()
	entry.key.LastUsedAt = &usedAt
	return nil
}

func (s *KeyStore) entry(keyID string) (*keyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.keys[keyID]
	if !ok {
		return nil, errors.ErrKeyNotFound(keyID)
	}
	return entry, nil
}

var _ repository.KeyRepository = (*KeyStore)(nil)
