// Package gorm provides the relational KeyRepository implementation, used
// with Postgres in production and sqlite in tests.
package gorm

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/repository"
	"github.com/keyforge/keyforge/pkg/errors"
)

// KeyStore is a GORM-backed key repository. Revocation is a one-way column
// update; records are never deleted.
type KeyStore struct {
	db *gorm.DB
}

// NewKeyStore wraps an existing GORM handle.
func NewKeyStore(db *gorm.DB) *KeyStore {
	return &KeyStore{db: db}
}

// Migrate creates or updates the api_keys table.
func (s *KeyStore) Migrate() error {
	return s.db.AutoMigrate(&models.Key{})
}

// Create inserts a new key record, failing on a duplicate identifier. The
// existence check and insert run in one transaction so two concurrent creates
// of the same identifier cannot both succeed.
func (s *KeyStore) Create(ctx context.Context, key *models.Key) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Key{}).Where("key_id = ?", key.KeyID).Count(&count).Error; err != nil {
			return errors.ErrInternal("key existence check failed").WithCause(err)
		}
		if count > 0 {
			return errors.ErrDuplicateKey(key.KeyID)
		}
		if err := tx.Create(key).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrDuplicateKey(key.KeyID)
			}
			return errors.ErrInternal("key insert failed").WithCause(err)
		}
		return nil
	})
}

// Get returns the record for keyID.
func (s *KeyStore) Get(ctx context.Context, keyID string) (*models.Key, error) {
	var key models.Key
	err := s.db.WithContext(ctx).First(&key, "key_id = ?", keyID).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrKeyNotFound(keyID)
	}
	if err != nil {
		return nil, errors.ErrInternal("key lookup failed").WithCause(err)
	}
	return &key, nil
}

// List returns records ordered by CreatedAt ascending.
func (s *KeyStore) List(ctx context.Context, activeOnly bool) ([]*models.Key, error) {
	query := s.db.WithContext(ctx).Order("created_at ASC, key_id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var keys []*models.Key
	if err := query.Find(&keys).Error; err != nil {
		return nil, errors.ErrInternal("key listing failed").WithCause(err)
	}
	return keys, nil
}

// Revoke flips the key to inactive. The WHERE clause on the active column
// makes the transition atomic: only one of several concurrent revokes
// observes a row update, and an already-revoked key reports false.
func (s *KeyStore) Revoke(ctx context.Context, keyID string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Key{}).
		Where("key_id = ? AND active = ?", keyID, true).
		Updates(map[string]interface{}{
			"active":     false,
			"revoked_at": at.UTC(),
		})
	if res.Error != nil {
		return false, errors.ErrInternal("key revocation failed").WithCause(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// TouchLastUsed records a successful validation. Last writer wins.
func (s *KeyStore) TouchLastUsed(ctx context.Context, keyID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Key{}).
		Where("key_id = ?", keyID).
		Update("last_used_at", at.UTC())
	if res.Error != nil {
		return errors.ErrInternal("last-used update failed").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrKeyNotFound(keyID)
	}
	return nil
}

var _ repository.KeyRepository = (*KeyStore)(nil)
