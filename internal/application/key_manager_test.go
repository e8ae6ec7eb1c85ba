package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge/keyforge/internal/application"
	"github.com/keyforge/keyforge/internal/infrastructure/audit"
	"github.com/keyforge/keyforge/internal/infrastructure/cache"
	"github.com/keyforge/keyforge/internal/infrastructure/crypto"
	"github.com/keyforge/keyforge/internal/infrastructure/persistence/memory"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
	"github.com/keyforge/keyforge/tests/fakes"
)

type managerFixture struct {
	manager *application.KeyManager
	clock   *fakes.FakeClock
	secrets *fakes.FakeSecretProvider
	cache   *cache.MemoryCache
	signer  *crypto.Signer
}

func newFixture(t *testing.T, opts ...application.Option) *managerFixture {
	t.Helper()

	clock := fakes.NewFakeClock(time.Unix(1700000000, 0))
	secrets := fakes.NewFakeSecretProvider()
	mem := cache.NewMemoryCache()

	validator, err := crypto.NewValidator(crypto.ValidatorConfig{
		Window:        time.Hour,
		SkewTolerance: time.Minute,
		CacheTTL:      5 * time.Minute,
	}, mem, clock, logger.NewNoopLogger())
	require.NoError(t, err)

	opts = append([]application.Option{application.WithClock(clock)}, opts...)
	manager := application.NewKeyManager(
		memory.NewKeyStore(),
		secrets,
		validator,
		audit.NewLog(logger.NewNoopLogger()),
		logger.NewNoopLogger(),
		opts...,
	)

	return &managerFixture{
		manager: manager,
		clock:   clock,
		secrets: secrets,
		cache:   mem,
		signer:  crypto.NewSigner(),
	}
}

func (f *managerFixture) createKey(t *testing.T, keyID, secret string) {
	t.Helper()
	_, err := f.manager.CreateKey(context.Background(), keyID, secret, nil)
	require.NoError(t, err)
}

func (f *managerFixture) validRequest(keyID, secret string) application.ValidateRequest {
	ts := f.clock.Now().Unix()
	return application.ValidateRequest{
		KeyID:     keyID,
		Signature: f.signer.Sign(keyID, secret, ts),
		Timestamp: ts,
	}
}

func TestKeyManager_CreateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := f.manager.CreateKey(ctx, "key-1", "s3cret", map[string]string{"env": "prod"})
	require.NoError(t, err)
	assert.Equal(t, "key-1", key.KeyID)
	assert.True(t, key.Active)
	assert.Nil(t, key.RevokedAt)
	assert.Equal(t, f.clock.Now(), key.CreatedAt)

	// The secret lives in the provider, filed under the key identifier.
	secret, err := f.secrets.FetchSecret(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret)

	entries := f.manager.AuditLog()
	require.Len(t, entries, 1)
	assert.Equal(t, constants.AuditActionCreate, entries[0].Action)
	assert.Equal(t, "key-1", entries[0].KeyID)
}

func TestKeyManager_CreateKeyValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.CreateKey(ctx, "", "s3cret", nil)
	assert.True(t, errors.IsCode(err, constants.ErrCodeInvalidInput))

	_, err = f.manager.CreateKey(ctx, "key-1", "", nil)
	assert.True(t, errors.IsCode(err, constants.ErrCodeInvalidInput))
}

func TestKeyManager_DuplicateCreateKeepsOriginalSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createKey(t, "key-1", "original")

	_, err := f.manager.CreateKey(ctx, "key-1", "attacker", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeDuplicateKey))

	secret, err := f.secrets.FetchSecret(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "original", secret)
}

func TestKeyManager_ValidateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	res, err := f.manager.ValidateKey(ctx, f.validRequest("key-1", "s3cret"))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.False(t, res.Cached)

	// A valid check stamps last-used.
	key, err := f.manager.GetKey(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, key.LastUsedAt)
	assert.Equal(t, f.clock.Now(), *key.LastUsedAt)
}

func TestKeyManager_ValidateKeyWrongSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	req := f.validRequest("key-1", "wrong-secret")
	res, err := f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	// Invalid checks never stamp last-used.
	key, err := f.manager.GetKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, key.LastUsedAt)
}

func TestKeyManager_ValidateUnknownKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.ValidateKey(context.Background(), f.validRequest("absent", "s3cret"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeKeyNotFound))
}

func TestKeyManager_ValidateRevokedKeyIsDeterministicFalse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	req := f.validRequest("key-1", "s3cret")

	revoked, err := f.manager.RevokeKey(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, revoked)

	// Correctly signed, no clock movement: still false, and no secret fetch.
	fetchesBefore := f.secrets.FetchCalls
	res, err := f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, fetchesBefore, f.secrets.FetchCalls)
}

func TestKeyManager_ValidateZeroTimestampUsesNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	sig := f.signer.Sign("key-1", "s3cret", f.clock.Now().Unix())
	res, err := f.manager.ValidateKey(ctx, application.ValidateRequest{
		KeyID:     "key-1",
		Signature: sig,
		Timestamp: 0,
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = f.manager.ValidateKey(ctx, application.ValidateRequest{
		KeyID:     "key-1",
		Signature: sig,
		Timestamp: -1,
	})
	assert.True(t, errors.IsCode(err, constants.ErrCodeInvalidInput))
}

func TestKeyManager_ValidateSecretResolutionFailureIsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	f.secrets.SetFailing(true)

	_, err := f.manager.ValidateKey(ctx, f.validRequest("key-1", "s3cret"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeSecretResolution))
}

func TestKeyManager_ValidateCachedFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	req := f.validRequest("key-1", "s3cret")

	first, err := f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)

	// An explicit bypass recomputes.
	bypass := false
	req.UseCache = &bypass
	third, err := f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestKeyManager_StrictMode(t *testing.T) {
	f := newFixture(t, application.WithStrictValidation())
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	// Valid still succeeds.
	res, err := f.manager.ValidateKey(ctx, f.validRequest("key-1", "s3cret"))
	require.NoError(t, err)
	assert.True(t, res.Valid)

	// Wrong signature and revoked key return the same opaque error.
	wrong := f.validRequest("key-1", "bad-secret")
	_, wrongErr := f.manager.ValidateKey(ctx, wrong)
	require.Error(t, wrongErr)
	assert.True(t, errors.IsCode(wrongErr, constants.ErrCodeInvalidSignature))

	_, err = f.manager.RevokeKey(ctx, "key-1")
	require.NoError(t, err)

	_, revokedErr := f.manager.ValidateKey(ctx, f.validRequest("key-1", "s3cret"))
	require.Error(t, revokedErr)
	assert.True(t, errors.IsCode(revokedErr, constants.ErrCodeInvalidSignature))
	assert.Equal(t, wrongErr.Error(), revokedErr.Error(), "strict errors must be indistinguishable")
}

func TestKeyManager_RevokeIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	revoked, err := f.manager.RevokeKey(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = f.manager.RevokeKey(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = f.manager.RevokeKey(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Only the effective revoke is audited.
	revokes := 0
	for _, e := range f.manager.AuditLog() {
		if e.Action == constants.AuditActionRevoke {
			revokes++
		}
	}
	assert.Equal(t, 1, revokes)
}

func TestKeyManager_ListKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createKey(t, "key-a", "s1")
	f.clock.Advance(time.Second)
	f.createKey(t, "key-b", "s2")
	f.clock.Advance(time.Second)
	f.createKey(t, "key-c", "s3")

	_, err := f.manager.RevokeKey(ctx, "key-b")
	require.NoError(t, err)

	all, err := f.manager.ListKeys(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "key-a", all[0].KeyID)
	assert.Equal(t, "key-b", all[1].KeyID)
	assert.Equal(t, "key-c", all[2].KeyID)

	active, err := f.manager.ListKeys(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "key-a", active[0].KeyID)
	assert.Equal(t, "key-c", active[1].KeyID)
}

func TestKeyManager_BatchValidatePartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")
	f.createKey(t, "key-2", "other")

	good := f.validRequest("key-1", "s3cret")
	bad := f.validRequest("key-2", "wrong")
	unknown := f.validRequest("absent", "s3cret")
	malformed := application.ValidateRequest{KeyID: "key-1", Signature: ""}

	results := f.manager.BatchValidate(ctx, []application.ValidateRequest{good, bad, unknown, malformed})
	require.Len(t, results, 4)

	require.NoError(t, results[0].Err)
	assert.True(t, results[0].Result.Valid)

	require.NoError(t, results[1].Err)
	assert.False(t, results[1].Result.Valid)

	require.Error(t, results[2].Err)
	assert.True(t, errors.IsCode(results[2].Err, constants.ErrCodeKeyNotFound))

	require.Error(t, results[3].Err)
	assert.True(t, errors.IsCode(results[3].Err, constants.ErrCodeInvalidInput))
}

func TestKeyManager_BatchValidateLargeBatchPositional(t *testing.T) {
	f := newFixture(t, application.WithBatchConcurrency(4))
	ctx := context.Background()

	const n = 40
	reqs := make([]application.ValidateRequest, 0, n)
	for i := 0; i < n; i++ {
		keyID := fmt.Sprintf("key-%02d", i)
		f.createKey(t, keyID, "s3cret")
		reqs = append(reqs, f.validRequest(keyID, "s3cret"))
	}

	results := f.manager.BatchValidate(ctx, reqs)
	require.Len(t, results, n)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("key-%02d", i), r.KeyID)
		require.NoError(t, r.Err)
		assert.True(t, r.Result.Valid)
	}
}

func TestKeyManager_AuditTimestampsMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createKey(t, "key-1", "s3cret")
	f.clock.Advance(time.Second)
	_, err := f.manager.ValidateKey(ctx, f.validRequest("key-1", "s3cret"))
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.manager.RevokeKey(ctx, "key-1")
	require.NoError(t, err)

	entries := f.manager.AuditLog()
	require.GreaterOrEqual(t, len(entries), 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp),
			"audit timestamps must be non-decreasing")
	}
}

func TestKeyManager_CacheStatsAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createKey(t, "key-1", "s3cret")

	req := f.validRequest("key-1", "s3cret")
	_, err := f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	_, err = f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)

	stats := f.manager.ValidationCacheStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, 1, stats.Size)

	require.NoError(t, f.manager.ClearValidationCache(ctx))
	assert.Zero(t, f.manager.ValidationCacheStats().Size)
}

func TestKeyManager_LifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Create, validate fresh, validate cached, age past the window, revoke.
	f.createKey(t, "key-1", "s3cret")
	req := f.validRequest("key-1", "s3cret")

	res, err := f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = f.manager.ValidateKey(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Cached)

	// Past window plus skew: a fresh computation now fails.
	f.clock.Advance(2 * time.Hour)
	bypass := false
	stale := req
	stale.UseCache = &bypass
	res, err = f.manager.ValidateKey(ctx, stale)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	revoked, err := f.manager.RevokeKey(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	res, err = f.manager.ValidateKey(ctx, f.validRequest("key-1", "s3cret"))
	require.NoError(t, err)
	assert.False(t, res.Valid)

	actions := make([]constants.AuditAction, 0)
	for _, e := range f.manager.AuditLog() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []constants.AuditAction{
		constants.AuditActionCreate,
		constants.AuditActionValidateSuccess,
		constants.AuditActionValidateSuccess,
		constants.AuditActionValidateFailure,
		constants.AuditActionRevoke,
		constants.AuditActionValidateFailure,
	}, actions)
}
