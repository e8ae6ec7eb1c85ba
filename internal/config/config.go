// Package config holds the service configuration and its viper-based loader.
package config

import (
	"fmt"
	"time"

	"github.com/keyforge/keyforge/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Validation ValidationConfig `mapstructure:"validation"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	PprofEnabled bool   `mapstructure:"pprof_enabled"`
}

// ValidationConfig carries the window arithmetic knobs in seconds, the unit
// the environment surface speaks.
type ValidationConfig struct {
	WindowSeconds             int `mapstructure:"window_seconds"`
	ClockSkewToleranceSeconds int `mapstructure:"clock_skew_tolerance_seconds"`
	CacheTTLSeconds           int `mapstructure:"cache_ttl_seconds"`
	BatchConcurrency          int `mapstructure:"batch_concurrency"`
}

func (c *ValidationConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c *ValidationConfig) SkewTolerance() time.Duration {
	return time.Duration(c.ClockSkewToleranceSeconds) * time.Second
}

func (c *ValidationConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

type CacheConfig struct {
	Backend string `mapstructure:"backend"` // memory | redis
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // memory | postgres
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type SecretsConfig struct {
	Backend string `mapstructure:"backend"` // memory | vault
}

type VaultConfig struct {
	Address      string `mapstructure:"address"`
	Token        string `mapstructure:"token"`
	MountPath    string `mapstructure:"mount_path"`
	PathPrefix   string `mapstructure:"path_prefix"`
	L1TTLSeconds int    `mapstructure:"l1_ttl_seconds"`
}

type AuditConfig struct {
	// SigningKey signs audit entries leaving the process. Empty disables
	// entry signing.
	SigningKey     string      `mapstructure:"signing_key"`
	ArchiveEnabled bool        `mapstructure:"archive_enabled"`
	Kafka          KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled             bool     `mapstructure:"enabled"`
	Brokers             []string `mapstructure:"brokers"`
	Topic               string   `mapstructure:"topic"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds"`
	BatchSize           int      `mapstructure:"batch_size"`
	BatchTimeoutMillis  int      `mapstructure:"batch_timeout_millis"`
}

type AuthConfig struct {
	// Enabled guards the admin routes with a bearer JWT when set.
	Enabled        bool   `mapstructure:"enabled"`
	AdminJWTSecret string `mapstructure:"admin_jwt_secret"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
	Environment    string  `mapstructure:"environment"`
}

// Validate checks the configured bounds before any component is built.
func (c *Config) Validate() error {
	window := c.Validation.Window()
	if window < constants.MinValidationWindow || window > constants.MaxValidationWindow {
		return fmt.Errorf("validation.window_seconds %d outside [%d, %d]",
			c.Validation.WindowSeconds,
			int(constants.MinValidationWindow.Seconds()),
			int(constants.MaxValidationWindow.Seconds()))
	}
	if c.Validation.ClockSkewToleranceSeconds < 0 {
		return fmt.Errorf("validation.clock_skew_tolerance_seconds must not be negative")
	}
	if c.Validation.CacheTTLSeconds < 0 {
		return fmt.Errorf("validation.cache_ttl_seconds must not be negative")
	}
	switch c.Cache.Backend {
	case constants.CacheBackendMemory, constants.CacheBackendRedis:
	default:
		return fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case constants.StoreBackendMemory, constants.StoreBackendPostgres:
	default:
		return fmt.Errorf("store.backend %q is not supported", c.Store.Backend)
	}
	switch c.Secrets.Backend {
	case constants.SecretBackendMemory, constants.SecretBackendVault:
	default:
		return fmt.Errorf("secrets.backend %q is not supported", c.Secrets.Backend)
	}
	if c.Auth.Enabled && c.Auth.AdminJWTSecret == "" {
		return fmt.Errorf("auth.admin_jwt_secret is required when auth is enabled")
	}
	return nil
}
