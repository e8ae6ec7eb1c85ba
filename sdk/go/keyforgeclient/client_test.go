package keyforgeclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge/keyforge/internal/application"
	"github.com/keyforge/keyforge/internal/infrastructure/audit"
	"github.com/keyforge/keyforge/internal/infrastructure/cache"
	"github.com/keyforge/keyforge/internal/infrastructure/crypto"
	"github.com/keyforge/keyforge/internal/infrastructure/monitoring"
	"github.com/keyforge/keyforge/internal/infrastructure/persistence/memory"
	"github.com/keyforge/keyforge/internal/interfaces/http/handlers"
	"github.com/keyforge/keyforge/pkg/logger"
	"github.com/keyforge/keyforge/sdk/go/keyforgeclient"
	"github.com/keyforge/keyforge/tests/fakes"
)

// newTestServer stands up the real handler stack behind an httptest server so
// the client is exercised against actual wire behavior.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	validator, err := crypto.NewValidator(crypto.ValidatorConfig{
		Window:        time.Hour,
		SkewTolerance: time.Minute,
		CacheTTL:      5 * time.Minute,
	}, cache.NewMemoryCache(), nil, logger.NewNoopLogger())
	require.NoError(t, err)

	manager := application.NewKeyManager(
		memory.NewKeyStore(),
		fakes.NewFakeSecretProvider(),
		validator,
		audit.NewLog(logger.NewNoopLogger()),
		logger.NewNoopLogger(),
	)
	handler := handlers.NewKeyHandler(manager, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())

	engine := gin.New()
	engine.POST("/v1/keys", handler.CreateKey)
	engine.GET("/v1/keys", handler.ListKeys)
	engine.GET("/v1/keys/:key_id", handler.GetKey)
	engine.DELETE("/v1/keys/:key_id", handler.RevokeKey)
	engine.POST("/v1/validate", handler.Validate)
	engine.GET("/v1/audit", handler.AuditLog)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_KeyLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := keyforgeclient.New(srv.URL)
	ctx := context.Background()

	key, err := client.CreateKey(ctx, "key-1", "s3cret", map[string]string{"env": "test"})
	require.NoError(t, err)
	assert.Equal(t, "key-1", key.KeyID)
	assert.True(t, key.Active)
	assert.Equal(t, "test", key.Metadata["env"])

	got, err := client.GetKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", got.KeyID)

	keys, err := client.ListKeys(ctx, true)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	revoked, err := client.RevokeKey(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = client.RevokeKey(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	keys, err = client.ListKeys(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClient_Validate(t *testing.T) {
	srv := newTestServer(t)
	client := keyforgeclient.New(srv.URL)
	ctx := context.Background()

	_, err := client.CreateKey(ctx, "key-1", "s3cret", nil)
	require.NoError(t, err)

	result, err := client.Validate(ctx, "key-1", "s3cret")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = client.Validate(ctx, "key-1", "wrong-secret")
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestClient_SignMatchesServerSigner(t *testing.T) {
	signer := crypto.NewSigner()
	for _, ts := range []int64{0, 1, 1700000000, 1<<31 - 1} {
		assert.Equal(t,
			signer.Sign("key-1", "s3cret", ts),
			keyforgeclient.Sign("key-1", "s3cret", ts),
			"timestamp %d", ts)
	}
}

func TestClient_NotFound(t *testing.T) {
	srv := newTestServer(t)
	client := keyforgeclient.New(srv.URL)

	_, err := client.GetKey(context.Background(), "absent")
	assert.ErrorIs(t, err, keyforgeclient.ErrNotFound)
}

func TestClient_AuditLog(t *testing.T) {
	srv := newTestServer(t)
	client := keyforgeclient.New(srv.URL)
	ctx := context.Background()

	_, err := client.CreateKey(ctx, "key-1", "s3cret", nil)
	require.NoError(t, err)
	_, err = client.RevokeKey(ctx, "key-1")
	require.NoError(t, err)

	entries, err := client.AuditLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, "revoke", entries[1].Action)
}

func TestClient_Unauthorized(t *testing.T) {
	// A stub that rejects everything the way the auth middleware would.
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"unauthorized","message":"invalid bearer token"}}`))
	}))
	defer stub.Close()

	client := keyforgeclient.New(stub.URL, keyforgeclient.WithAdminToken("stale"))
	_, err := client.CreateKey(context.Background(), "key-1", "s3cret", nil)
	assert.ErrorIs(t, err, keyforgeclient.ErrUnauthorized)
}
