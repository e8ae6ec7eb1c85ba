// Command server runs the keyforge HTTP service.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/keyforge/keyforge/internal/application"
	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/domain/repository"
	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/internal/infrastructure/audit"
	"github.com/keyforge/keyforge/internal/infrastructure/cache"
	"github.com/keyforge/keyforge/internal/infrastructure/crypto"
	"github.com/keyforge/keyforge/internal/infrastructure/monitoring"
	gormstore "github.com/keyforge/keyforge/internal/infrastructure/persistence/gorm"
	memstore "github.com/keyforge/keyforge/internal/infrastructure/persistence/memory"
	pgaudit "github.com/keyforge/keyforge/internal/infrastructure/persistence/postgres"
	"github.com/keyforge/keyforge/internal/infrastructure/secrets"
	httpiface "github.com/keyforge/keyforge/internal/interfaces/http"
	"github.com/keyforge/keyforge/internal/interfaces/http/handlers"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := monitoring.NewTracingManager(cfg.Tracing, appLog)
	if err != nil {
		appLog.Fatal(ctx, "initialize tracing", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			appLog.Warn(shutdownCtx, "tracing shutdown failed", logger.Fields{"error": err.Error()})
		}
	}()

	checks := map[string]handlers.DependencyChecker{}

	// Validation result cache.
	var validationCache service.ValidationCache
	switch cfg.Cache.Backend {
	case constants.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		defer client.Close()
		validationCache = cache.NewRedisCache(client, appLog)
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	default:
		validationCache = cache.NewMemoryCache()
	}

	// Secret provider.
	var secretProvider service.SecretProvider
	switch cfg.Secrets.Backend {
	case constants.SecretBackendVault:
		vp, err := secrets.NewVaultProvider(secrets.VaultConfig{
			Address:    cfg.Vault.Address,
			Token:      cfg.Vault.Token,
			MountPath:  cfg.Vault.MountPath,
			PathPrefix: cfg.Vault.PathPrefix,
			L1TTL:      time.Duration(cfg.Vault.L1TTLSeconds) * time.Second,
		}, appLog)
		if err != nil {
			appLog.Fatal(ctx, "initialize vault provider", err)
		}
		secretProvider = vp
	default:
		secretProvider = secrets.NewMemoryProvider()
	}

	// Key store.
	var keyRepo repository.KeyRepository
	switch cfg.Store.Backend {
	case constants.StoreBackendPostgres:
		db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
			// Unique violations must surface as gorm.ErrDuplicatedKey for
			// the store's duplicate mapping.
			TranslateError: true,
		})
		if err != nil {
			appLog.Fatal(ctx, "open database", err)
		}
		store := gormstore.NewKeyStore(db)
		if err := store.Migrate(); err != nil {
			appLog.Fatal(ctx, "migrate key store", err)
		}
		keyRepo = store
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	default:
		keyRepo = memstore.NewKeyStore()
	}

	// Audit sinks.
	var sinks []service.AuditSink
	if cfg.Audit.Kafka.Enabled {
		publisher := audit.NewKafkaPublisher(audit.KafkaConfig{
			Brokers:      cfg.Audit.Kafka.Brokers,
			Topic:        cfg.Audit.Kafka.Topic,
			WriteTimeout: time.Duration(cfg.Audit.Kafka.WriteTimeoutSeconds) * time.Second,
			BatchSize:    cfg.Audit.Kafka.BatchSize,
			BatchTimeout: time.Duration(cfg.Audit.Kafka.BatchTimeoutMillis) * time.Millisecond,
			SigningKey:   cfg.Audit.SigningKey,
		}, appLog)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	if cfg.Audit.ArchiveEnabled {
		pool, err := pgxpool.New(ctx, cfg.Database.GetDSN())
		if err != nil {
			appLog.Fatal(ctx, "open audit archive pool", err)
		}
		defer pool.Close()
		archive := pgaudit.NewAuditArchive(pool, cfg.Audit.SigningKey)
		if err := archive.Migrate(ctx); err != nil {
			appLog.Fatal(ctx, "migrate audit archive", err)
		}
		sinks = append(sinks, archive)
		checks["audit_archive"] = pool.Ping
	}
	auditLog := audit.NewLog(appLog, sinks...)

	validator, err := crypto.NewValidator(crypto.ValidatorConfig{
		Window:           cfg.Validation.Window(),
		SkewTolerance:    cfg.Validation.SkewTolerance(),
		CacheTTL:         cfg.Validation.CacheTTL(),
		BatchConcurrency: cfg.Validation.BatchConcurrency,
	}, validationCache, service.NewSystemClock(), appLog)
	if err != nil {
		appLog.Fatal(ctx, "initialize validator", err)
	}

	manager := application.NewKeyManager(keyRepo, secretProvider, validator, auditLog, appLog,
		application.WithBatchConcurrency(cfg.Validation.BatchConcurrency))

	metrics := monitoring.NewMetrics(nil)
	keyHandler := handlers.NewKeyHandler(manager, metrics, appLog)
	healthHandler := handlers.NewHealthHandler(checks)
	router := httpiface.NewRouter(cfg, appLog, keyHandler, healthHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLog.Fatal(ctx, "http server failed", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := router.Stop(shutdownCtx); err != nil {
		appLog.Error(shutdownCtx, "http server shutdown failed", err)
	}
	appLog.Info(context.Background(), "server stopped")
}
