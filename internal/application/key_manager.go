// Package application provides the key lifecycle orchestrator. The KeyManager
// coordinates the key repository, the secret provider, the validation engine,
// and the audit trail it exclusively owns.
package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/repository"
	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/internal/infrastructure/audit"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
)

// ValidateRequest is one validation request as seen by the manager.
type ValidateRequest struct {
	KeyID     string
	Signature string

	// Timestamp is the signed Unix timestamp. Zero means "stamp with the
	// current time"; negative values are rejected as malformed.
	Timestamp int64

	// UseCache defaults to true when nil.
	UseCache *bool
}

// KeyManager orchestrates the key lifecycle. Every mutation of a key record
// goes through it, and it is the sole owner of the audit log and the
// validation cache behind the validator.
type KeyManager struct {
	repo      repository.KeyRepository
	secrets   service.SecretProvider
	validator service.ValidationService
	auditLog  *audit.Log
	clock     service.Clock
	log       logger.Logger

	batchConcurrency int
	strict           bool
}

// Option customizes a KeyManager.
type Option func(*KeyManager)

// WithStrictValidation makes every evaluated-false validation return a
// uniform invalid-signature error instead of a boolean result. The error
// carries no detail about which check failed.
func WithStrictValidation() Option {
	return func(m *KeyManager) { m.strict = true }
}

// WithClock overrides the time source. Used in tests.
func WithClock(clock service.Clock) Option {
	return func(m *KeyManager) { m.clock = clock }
}

// WithBatchConcurrency bounds the fan-out of BatchValidate.
func WithBatchConcurrency(n int) Option {
	return func(m *KeyManager) {
		if n > 0 {
			m.batchConcurrency = n
		}
	}
}

// NewKeyManager wires a manager from explicitly constructed dependencies.
// Nothing here is a process-wide singleton; multiple isolated managers can
// coexist in one process.
func NewKeyManager(
	repo repository.KeyRepository,
	secrets service.SecretProvider,
	validator service.ValidationService,
	auditLog *audit.Log,
	log logger.Logger,
	opts ...Option,
) *KeyManager {
	m := &KeyManager{
		repo:             repo,
		secrets:          secrets,
		validator:        validator,
		auditLog:         auditLog,
		clock:            service.NewSystemClock(),
		log:              log.WithComponent("KeyManager"),
		batchConcurrency: constants.DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateKey registers a new key and files its secret with the provider when
// the provider is writable. Key identifiers are never reused: creation fails
// for an identifier that exists in any state, including revoked.
func (m *KeyManager) CreateKey(ctx context.Context, keyID, secret string, metadata map[string]string) (*models.Key, error) {
	if keyID == "" {
		return nil, errors.ErrInvalidInput("key_id is required")
	}
	if secret == "" {
		return nil, errors.ErrInvalidInput("secret is required")
	}

	now := m.clock.Now().UTC()
	key := &models.Key{
		KeyID:     keyID,
		SecretRef: keyID,
		Metadata:  metadata,
		Active:    true,
		CreatedAt: now,
	}

	// The repository claims the identifier first so a duplicate create can
	// never overwrite an existing key's secret.
	if err := m.repo.Create(ctx, key); err != nil {
		return nil, err
	}

	if writable, ok := m.secrets.(service.WritableSecretProvider); ok {
		if err := writable.StoreSecret(ctx, keyID, secret); err != nil {
			m.log.Error(ctx, "secret store failed after key creation", err,
				logger.Fields{"key_id": keyID})
			return nil, err
		}
	}

	m.auditLog.Append(ctx, models.NewAuditEntry(constants.AuditActionCreate, keyID, "", m.clock.Now()))
	m.log.Info(ctx, "key created", logger.Fields{"key_id": keyID})
	return key.Clone(), nil
}

// ValidateKey verifies a presented signature for a managed key.
//
// A revoked key deterministically validates false before any secret or
// signature work. Malformed requests and secret resolution failures are
// errors, never a false verdict: callers must not confuse "could not
// evaluate" with "evaluated false".
func (m *KeyManager) ValidateKey(ctx context.Context, req ValidateRequest) (models.ValidationResult, error) {
	if req.KeyID == "" {
		return models.ValidationResult{}, errors.ErrInvalidInput("key_id is required")
	}
	if req.Signature == "" {
		return models.ValidationResult{}, errors.ErrInvalidInput("signature is required")
	}
	if req.Timestamp < 0 {
		return models.ValidationResult{}, errors.ErrInvalidInput("timestamp must not be negative")
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = m.clock.Now().Unix()
	}

	key, err := m.repo.Get(ctx, req.KeyID)
	if err != nil {
		return models.ValidationResult{}, err
	}

	if !key.Active {
		result := models.ValidationResult{}
		m.recordValidation(ctx, req.KeyID, result, "key revoked")
		return result, m.strictErr()
	}

	secret, err := m.secrets.FetchSecret(ctx, key.SecretRef)
	if err != nil {
		return models.ValidationResult{}, err
	}

	result, err := m.validator.Validate(ctx, models.ValidationInput{
		KeyID:     req.KeyID,
		Signature: req.Signature,
		Secret:    secret,
		Timestamp: timestamp,
		UseCache:  req.UseCache == nil || *req.UseCache,
	})
	if err != nil {
		return models.ValidationResult{}, err
	}

	if result.Valid {
		if err := m.repo.TouchLastUsed(ctx, req.KeyID, m.clock.Now()); err != nil {
			m.log.Warn(ctx, "failed to update last-used timestamp",
				logger.Fields{"key_id": req.KeyID, "error": err.Error()})
		}
	}
	m.recordValidation(ctx, req.KeyID, result, "")

	if !result.Valid {
		return result, m.strictErr()
	}
	return result, nil
}

// BatchValidate runs the requests concurrently. results[i] belongs to
// reqs[i]; an error in one entry never aborts the others. Audit entries for
// the batch appear in completion order, which may differ from input order.
func (m *KeyManager) BatchValidate(ctx context.Context, reqs []ValidateRequest) []models.BatchResult {
	results := make([]models.BatchResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.batchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := m.ValidateKey(gctx, req)
			results[i] = models.BatchResult{KeyID: req.KeyID, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// RevokeKey deactivates a key. One-way and terminal: there is no un-revoke.
// Revoking an unknown or already-revoked key returns false rather than an
// error; that makes retries of a revoke harmless.
func (m *KeyManager) RevokeKey(ctx context.Context, keyID string) (bool, error) {
	if keyID == "" {
		return false, errors.ErrInvalidInput("key_id is required")
	}

	revoked, err := m.repo.Revoke(ctx, keyID, m.clock.Now())
	if err != nil {
		return false, err
	}
	if revoked {
		m.auditLog.Append(ctx, models.NewAuditEntry(constants.AuditActionRevoke, keyID, "", m.clock.Now()))
		m.log.Info(ctx, "key revoked", logger.Fields{"key_id": keyID})
	}
	return revoked, nil
}

// GetKey returns the record for keyID. Reads are audited too; this is a
// trust-boundary system.
func (m *KeyManager) GetKey(ctx context.Context, keyID string) (*models.Key, error) {
	if keyID == "" {
		return nil, errors.ErrInvalidInput("key_id is required")
	}

	key, err := m.repo.Get(ctx, keyID)
	if err != nil {
		return nil, err
	}
	m.auditLog.Append(ctx, models.NewAuditEntry(constants.AuditActionGet, keyID, "", m.clock.Now()))
	return key, nil
}

// ListKeys returns the keys ordered by creation time ascending. Revoked keys
// are included unless activeOnly is set.
func (m *KeyManager) ListKeys(ctx context.Context, activeOnly bool) ([]*models.Key, error) {
	keys, err := m.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	m.auditLog.Append(ctx, models.NewAuditEntry(constants.AuditActionList, "",
		fmt.Sprintf("returned=%d active_only=%t", len(keys), activeOnly), m.clock.Now()))
	return keys, nil
}

// AuditLog returns a read-only snapshot of the audit trail in insertion order.
func (m *KeyManager) AuditLog() []models.AuditEntry {
	return m.auditLog.Snapshot()
}

// ClearValidationCache empties the validation result cache.
func (m *KeyManager) ClearValidationCache(ctx context.Context) error {
	return m.validator.ClearCache(ctx)
}

// ValidationCacheStats reports the cache hit/miss counters and size.
func (m *KeyManager) ValidationCacheStats() service.CacheStats {
	return m.validator.CacheStats()
}

func (m *KeyManager) recordValidation(ctx context.Context, keyID string, result models.ValidationResult, detail string) {
	action := constants.AuditActionValidateFailure
	if result.Valid {
		action = constants.AuditActionValidateSuccess
	}
	if detail == "" {
		detail = fmt.Sprintf("cached=%t", result.Cached)
	}
	m.auditLog.Append(ctx, models.NewAuditEntry(action, keyID, detail, m.clock.Now()))
}

func (m *KeyManager) strictErr() error {
	if m.strict {
		return errors.ErrInvalidSignature()
	}
	return nil
}
