// Package constants defines shared constants for the keyforge service:
// error codes, audit actions, context keys, and configuration defaults.
package constants

import "time"

// ServiceName is used for tracing, metrics namespaces, and log fields.
const ServiceName = "keyforge"

// ================================================================================
// Error Codes
// ================================================================================

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	ErrCodeInvalidInput     ErrorCode = "invalid_input"
	ErrCodeKeyNotFound      ErrorCode = "key_not_found"
	ErrCodeDuplicateKey     ErrorCode = "duplicate_key"
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
	ErrCodeSecretResolution ErrorCode = "secret_resolution"
	ErrCodeCacheFailure     ErrorCode = "cache_failure"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeRateLimited      ErrorCode = "rate_limited"
	ErrCodeInternal         ErrorCode = "internal"
)

// ================================================================================
// Audit Actions
// ================================================================================

// AuditAction identifies the operation recorded by an audit entry.
type AuditAction string

const (
	AuditActionCreate          AuditAction = "create"
	AuditActionRevoke          AuditAction = "revoke"
	AuditActionValidateSuccess AuditAction = "validate_success"
	AuditActionValidateFailure AuditAction = "validate_failure"
	AuditActionGet             AuditAction = "get"
	AuditActionList            AuditAction = "list"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type used for values stored in a request context.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyTraceID   ContextKey = "trace_id"
	ContextKeyAdminSub  ContextKey = "admin_sub"
)

// ================================================================================
// Validation Defaults and Bounds
// ================================================================================

const (
	// DefaultValidationWindow is how far in the past a signed timestamp may lie.
	DefaultValidationWindow = 6 * time.Hour

	// MinValidationWindow and MaxValidationWindow bound the configurable window.
	MinValidationWindow = 5 * time.Minute
	MaxValidationWindow = 30 * 24 * time.Hour

	// DefaultClockSkewTolerance absorbs clock drift between signer and verifier.
	DefaultClockSkewTolerance = 60 * time.Second

	// DefaultCacheTTL is the lifetime of a cached validation result.
	// A TTL of zero disables result caching.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultBatchConcurrency bounds the fan-out of a batch validation call.
	DefaultBatchConcurrency = 16
)

// ================================================================================
// Rate Limiting Defaults
// ================================================================================

const (
	DefaultRateLimitPerMinute = 100
	DefaultRateLimitBurst     = 20
)

// ================================================================================
// Backend Selectors
// ================================================================================

const (
	SecretBackendMemory = "memory"
	SecretBackendVault  = "vault"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)
