package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge/keyforge/internal/application"
	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/infrastructure/audit"
	"github.com/keyforge/keyforge/internal/infrastructure/cache"
	"github.com/keyforge/keyforge/internal/infrastructure/crypto"
	"github.com/keyforge/keyforge/internal/infrastructure/monitoring"
	"github.com/keyforge/keyforge/internal/infrastructure/persistence/memory"
	httpiface "github.com/keyforge/keyforge/internal/interfaces/http"
	"github.com/keyforge/keyforge/internal/interfaces/http/handlers"
	"github.com/keyforge/keyforge/pkg/logger"
	"github.com/keyforge/keyforge/tests/fakes"
)

const adminSecret = "router-test-secret"

func newRouter(t *testing.T, mutate func(*config.Config)) *httpiface.Router {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

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

	keyHandler := handlers.NewKeyHandler(manager, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())
	healthHandler := handlers.NewHealthHandler(nil)

	return httpiface.NewRouter(cfg, logger.NewNoopLogger(), keyHandler, healthHandler)
}

func get(r *httpiface.Router, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	r := newRouter(t, nil)

	assert.Equal(t, http.StatusOK, get(r, "/live", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/metrics", nil).Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := newRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, get(r, "/nope", nil).Code)
}

func TestRouter_RequestIDOnEveryResponse(t *testing.T) {
	r := newRouter(t, nil)
	w := get(r, "/live", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_AdminRoutesGuardedWhenAuthEnabled(t *testing.T) {
	r := newRouter(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.AdminJWTSecret = adminSecret
	})

	// No token: rejected.
	assert.Equal(t, http.StatusUnauthorized, get(r, "/v1/keys", nil).Code)

	// Valid admin token: admitted.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(adminSecret))
	require.NoError(t, err)

	w := get(r, "/v1/keys", map[string]string{"Authorization": "Bearer " + signed})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ValidateStaysOpenUnderAuth(t *testing.T) {
	r := newRouter(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.AdminJWTSecret = adminSecret
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", nil)
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	// Open endpoint: failures are about the payload, never about auth.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
