package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyforge/keyforge/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.Secrets.Backend)
	assert.False(t, cfg.Auth.Enabled)

	assert.Equal(t, 6*time.Hour, cfg.Validation.Window())
	assert.Equal(t, time.Minute, cfg.Validation.SkewTolerance())
	assert.Equal(t, 5*time.Minute, cfg.Validation.CacheTTL())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("KEYFORGE_SERVER_PORT", "9090")
	t.Setenv("KEYFORGE_VALIDATION_WINDOW_SECONDS", "3600")
	t.Setenv("KEYFORGE_CACHE_BACKEND", "redis")
	t.Setenv("KEYFORGE_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Validation.Window())
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsOutOfBoundsWindow(t *testing.T) {
	t.Setenv("KEYFORGE_VALIDATION_WINDOW_SECONDS", "60") // below the 5m floor

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window")
}

func TestConfigValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg, err := config.Load()
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
		substr string
	}{
		{"window too large", func(c *config.Config) { c.Validation.WindowSeconds = 40 * 24 * 3600 }, "window"},
		{"negative skew", func(c *config.Config) { c.Validation.ClockSkewToleranceSeconds = -1 }, "skew"},
		{"negative cache ttl", func(c *config.Config) { c.Validation.CacheTTLSeconds = -1 }, "ttl"},
		{"unknown cache backend", func(c *config.Config) { c.Cache.Backend = "memcached" }, "cache"},
		{"unknown store backend", func(c *config.Config) { c.Store.Backend = "mysql" }, "store"},
		{"unknown secrets backend", func(c *config.Config) { c.Secrets.Backend = "aws" }, "secrets"},
		{"auth without secret", func(c *config.Config) { c.Auth.Enabled = true; c.Auth.AdminJWTSecret = "" }, "jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.substr)
		})
	}

	assert.NoError(t, valid().Validate())
}

func TestValidationConfig_DurationHelpers(t *testing.T) {
	vc := config.ValidationConfig{
		WindowSeconds:             7200,
		ClockSkewToleranceSeconds: 30,
		CacheTTLSeconds:           0,
	}
	assert.Equal(t, 2*time.Hour, vc.Window())
	assert.Equal(t, 30*time.Second, vc.SkewTolerance())
	assert.Equal(t, time.Duration(0), vc.CacheTTL())
}
