package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/logger"
)

// Load reads configuration from defaults, an optional keyforge.yaml, and
// KEYFORGE_* environment variables, in that order of precedence (lowest
// first).
func Load() (*Config, error) {
	cfg, _, err := load()
	return cfg, err
}

// LoadAndWatch behaves like Load and additionally re-reads the config file
// whenever it changes on disk. A successfully re-validated config is handed
// to onChange; a broken edit is logged and ignored, keeping the running
// config intact.
func LoadAndWatch(log logger.Logger, onChange func(*Config)) (*Config, error) {
	cfg, v, err := load()
	if err != nil {
		return nil, err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		next := &Config{}
		if err := v.Unmarshal(next); err != nil {
			log.Warn(context.Background(), "config reload failed, keeping previous config",
				logger.Fields{"file": e.Name, "error": err.Error()})
			return
		}
		if err := next.Validate(); err != nil {
			log.Warn(context.Background(), "config reload rejected, keeping previous config",
				logger.Fields{"file": e.Name, "error": err.Error()})
			return
		}
		log.Info(context.Background(), "config reloaded", logger.Fields{"file": e.Name})
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func load() (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("keyforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/keyforge")

	v.SetEnvPrefix("KEYFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// The file is optional; defaults plus env must be enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.pprof_enabled", false)

	v.SetDefault("validation.window_seconds", int(constants.DefaultValidationWindow.Seconds()))
	v.SetDefault("validation.clock_skew_tolerance_seconds", int(constants.DefaultClockSkewTolerance.Seconds()))
	v.SetDefault("validation.cache_ttl_seconds", int(constants.DefaultCacheTTL.Seconds()))
	v.SetDefault("validation.batch_concurrency", constants.DefaultBatchConcurrency)

	v.SetDefault("cache.backend", constants.CacheBackendMemory)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("store.backend", constants.StoreBackendMemory)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "keyforge")
	v.SetDefault("database.database", "keyforge")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("secrets.backend", constants.SecretBackendMemory)
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.path_prefix", "keyforge/keys")
	v.SetDefault("vault.l1_ttl_seconds", 60)

	v.SetDefault("audit.archive_enabled", false)
	v.SetDefault("audit.kafka.enabled", false)
	v.SetDefault("audit.kafka.topic", "keyforge.audit")
	v.SetDefault("audit.kafka.write_timeout_seconds", 10)
	v.SetDefault("audit.kafka.batch_size", 100)
	v.SetDefault("audit.kafka.batch_timeout_millis", 1000)

	v.SetDefault("auth.enabled", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", constants.DefaultRateLimitPerMinute)
	v.SetDefault("rate_limit.burst", constants.DefaultRateLimitBurst)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampling_rate", 0.1)
	v.SetDefault("tracing.environment", "development")
}
