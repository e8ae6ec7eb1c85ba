package fakes

import (
	"context"
	"time"

	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/errors"
)

// FailingCache errors on every operation, for exercising the degrade-to-
// recompute path.
type FailingCache struct{}

func (FailingCache) Get(ctx context.Context, fingerprint string) (bool, bool, error) {
	return false, false, errors.ErrCacheFailure(nil)
}

func (FailingCache) Put(ctx context.Context, fingerprint string, result bool, ttl time.Duration) error {
	return errors.ErrCacheFailure(nil)
}

func (FailingCache) Clear(ctx context.Context) error {
	return errors.ErrCacheFailure(nil)
}

func (FailingCache) Stats() service.CacheStats {
	return service.CacheStats{}
}

var _ service.ValidationCache = FailingCache{}
