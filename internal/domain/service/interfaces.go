// Package service defines the domain service contracts: time source, secret
// resolution, validation, caching, and audit sinks.
package service

import (
	"context"
	"time"

	"github.com/keyforge/keyforge/internal/domain/models"
)

// Clock supplies the current time. Injected so window arithmetic is testable.
type Clock interface {
	Now() time.Time
}

// SecretProvider resolves an opaque secret reference to the shared secret.
// Implementations may be an in-memory map, a database, or a Vault-like secret
// manager; callers must treat FetchSecret as potentially slow and fallible.
// Failures surface as retryable secret-resolution errors; the retry policy
// belongs to the caller, never to this service.
type SecretProvider interface {
	FetchSecret(ctx context.Context, ref string) (string, error)
}

// WritableSecretProvider extends SecretProvider with write operations, used
// when key creation also stores the secret. Secrets are filed under the key
// identifier, which then serves as the record's secret reference.
type WritableSecretProvider interface {
	SecretProvider
	StoreSecret(ctx context.Context, keyID, secret string) error
	DeleteSecret(ctx context.Context, ref string) error
}

// CacheStats reports the process-lifetime hit/miss counters and current size.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// ValidationCache maps a validation fingerprint to a cached boolean verdict.
// Implementations must be safe for concurrent readers and writers; batch
// validation fans out in parallel. Counters are monotonic for the process
// lifetime and reset only by Clear.
type ValidationCache interface {
	// Get returns (result, ok). ok is false when the entry is absent or past
	// its expiry; expired entries are treated as absent, not eagerly deleted.
	Get(ctx context.Context, fingerprint string) (result bool, ok bool, err error)

	// Put stores a verdict under the fingerprint with the given TTL.
	Put(ctx context.Context, fingerprint string, result bool, ttl time.Duration) error

	// Clear atomically empties the cache and resets the counters.
	Clear(ctx context.Context) error

	Stats() CacheStats
}

// ValidationService is the signature validation engine contract.
type ValidationService interface {
	// Validate verifies one presented signature. Malformed input returns an
	// invalid-input error, distinct from an evaluated-false result.
	Validate(ctx context.Context, in models.ValidationInput) (models.ValidationResult, error)

	// BatchValidate runs each entry independently and concurrently. The result
	// slice is positional: results[i] belongs to in[i], and an error in one
	// entry never aborts the others.
	BatchValidate(ctx context.Context, in []models.ValidationInput) []models.BatchResult

	ClearCache(ctx context.Context) error
	CacheStats() CacheStats
}

// AuditSink receives audit entries fanned out beyond the in-process log
// (Kafka topic, Postgres archive). Sinks are best-effort: a sink failure is
// logged and never fails the audited operation.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}
