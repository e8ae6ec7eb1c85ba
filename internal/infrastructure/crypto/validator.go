package crypto

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/keyforge/keyforge/internal/domain/models"
	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
)

// ValidatorConfig holds the window arithmetic and caching knobs.
type ValidatorConfig struct {
	// Window is how far a signed timestamp may deviate from the verifier's
	// clock before the signature is rejected without being recomputed.
	Window time.Duration

	// SkewTolerance widens the window to absorb clock drift.
	SkewTolerance time.Duration

	// CacheTTL is the lifetime of a cached verdict. Zero disables caching.
	CacheTTL time.Duration

	// BatchConcurrency bounds batch fan-out. Zero means the default.
	BatchConcurrency int
}

func (c *ValidatorConfig) applyDefaults() {
	if c.Window == 0 {
		c.Window = constants.DefaultValidationWindow
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = constants.DefaultBatchConcurrency
	}
}

// Validate checks the configured bounds: the window must stay within
// [5m, 30d], and neither skew nor cache TTL may be negative.
func (c *ValidatorConfig) Validate() error {
	if c.Window < constants.MinValidationWindow || c.Window > constants.MaxValidationWindow {
		return errors.ErrInvalidInput(fmt.Sprintf(
			"validation window %s outside [%s, %s]",
			c.Window, constants.MinValidationWindow, constants.MaxValidationWindow))
	}
	if c.SkewTolerance < 0 {
		return errors.ErrInvalidInput("clock skew tolerance must not be negative")
	}
	if c.CacheTTL < 0 {
		return errors.ErrInvalidInput("cache TTL must not be negative")
	}
	return nil
}

// Validator verifies presented signatures against recomputed ones, enforcing
// the timestamp window and consulting the validation cache. It implements
// service.ValidationService.
type Validator struct {
	signer *Signer
	cache  service.ValidationCache
	clock  service.Clock
	cfg    ValidatorConfig
	log    logger.Logger
}

// NewValidator builds a Validator. The cache may be nil, which disables
// result caching just like a zero CacheTTL.
func NewValidator(cfg ValidatorConfig, cache service.ValidationCache, clock service.Clock, log logger.Logger) (*Validator, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = service.NewSystemClock()
	}
	return &Validator{
		signer: NewSigner(),
		cache:  cache,
		clock:  clock,
		cfg:    cfg,
		log:    log.WithComponent("Validator"),
	}, nil
}

// Validate verifies one presented signature.
//
// The timestamp window is checked before any signature work: a stale request
// is rejected without revealing whether its signature would otherwise have
// matched. Cache failures degrade to recomputation and are never surfaced.
func (v *Validator) Validate(ctx context.Context, in models.ValidationInput) (models.ValidationResult, error) {
	if in.KeyID == "" {
		return models.ValidationResult{}, errors.ErrInvalidInput("key_id is required")
	}
	if in.Signature == "" {
		return models.ValidationResult{}, errors.ErrInvalidInput("signature is required")
	}
	if in.Secret == "" {
		return models.ValidationResult{}, errors.ErrInvalidInput("secret is required")
	}
	if in.Timestamp <= 0 {
		return models.ValidationResult{}, errors.ErrInvalidInput("timestamp is required")
	}

	fingerprint := models.Fingerprint(in.KeyID, in.Signature, in.Timestamp)
	useCache := in.UseCache && v.cacheEnabled()

	if useCache {
		cached, ok, err := v.cache.Get(ctx, fingerprint)
		if err != nil {
			v.log.Warn(ctx, "validation cache read failed, recomputing",
				logger.Fields{"error": err.Error()})
		} else if ok {
			return models.ValidationResult{Valid: cached, Cached: true}, nil
		}
	}

	valid := false
	envelope := v.cfg.Window + v.cfg.SkewTolerance
	age := v.clock.Now().Unix() - in.Timestamp
	if age <= int64(envelope.Seconds()) && -age <= int64(envelope.Seconds()) {
		expected := v.signer.Sign(in.KeyID, in.Secret, in.Timestamp)
		valid = ConstantTimeEqual(expected, in.Signature)
	}

	if useCache {
		if err := v.cache.Put(ctx, fingerprint, valid, v.cfg.CacheTTL); err != nil {
			v.log.Warn(ctx, "validation cache write failed",
				logger.Fields{"error": err.Error()})
		}
	}

	return models.ValidationResult{Valid: valid, Cached: false}, nil
}

// BatchValidate fans the entries out concurrently. results[i] always belongs
// to in[i]; one entry's error never aborts the others.
func (v *Validator) BatchValidate(ctx context.Context, in []models.ValidationInput) []models.BatchResult {
	results := make([]models.BatchResult, len(in))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.BatchConcurrency)
	for i, entry := range in {
		g.Go(func() error {
			res, err := v.Validate(gctx, entry)
			results[i] = models.BatchResult{KeyID: entry.KeyID, Result: res, Err: err}
			return nil
		})
	}
	// Goroutines never return errors; Wait only joins them.
	_ = g.Wait()

	return results
}

// ClearCache atomically empties the validation cache.
func (v *Validator) ClearCache(ctx context.Context) error {
	if v.cache == nil {
		return nil
	}
	return v.cache.Clear(ctx)
}

// CacheStats reports the hit/miss counters and cache size.
func (v *Validator) CacheStats() service.CacheStats {
	if v.cache == nil {
		return service.CacheStats{}
	}
	return v.cache.Stats()
}

func (v *Validator) cacheEnabled() bool {
	return v.cache != nil && v.cfg.CacheTTL > 0
}
