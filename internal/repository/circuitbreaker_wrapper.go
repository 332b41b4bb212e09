package repository

import (
	"context"
	"errors"

	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
)

// IsMirrorFailure classifies errors for the mirror circuit breaker. Missing
// keys and a full mirror are normal results, not outages.
func IsMirrorFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, cache.ErrNotFound) &&
		!errors.Is(err, cache.ErrQuotaExceeded) &&
		!errors.Is(err, context.Canceled)
}

// CacheMirrorWithCircuitBreaker wraps a cache.Mirror with circuit breaker protection.
type CacheMirrorWithCircuitBreaker struct {
	mirror         cache.Mirror
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewCacheMirrorWithCircuitBreaker creates a new mirror wrapper with circuit breaker.
func NewCacheMirrorWithCircuitBreaker(mirror cache.Mirror, cb *circuitbreaker.CircuitBreaker) *CacheMirrorWithCircuitBreaker {
	return &CacheMirrorWithCircuitBreaker{
		mirror:         mirror,
		circuitBreaker: cb,
	}
}

func (r *CacheMirrorWithCircuitBreaker) Load(ctx context.Context, key string) (cache.Record, error) {
	return circuitbreaker.Do(ctx, r.circuitBreaker, func(ctx context.Context) (cache.Record, error) {
		return r.mirror.Load(ctx, key)
	})
}

func (r *CacheMirrorWithCircuitBreaker) Save(ctx context.Context, rec cache.Record) error {
	return r.circuitBreaker.Execute(ctx, func() error {
		return r.mirror.Save(ctx, rec)
	})
}

func (r *CacheMirrorWithCircuitBreaker) Remove(ctx context.Context, keys ...string) error {
	return r.circuitBreaker.Execute(ctx, func() error {
		return r.mirror.Remove(ctx, keys...)
	})
}

func (r *CacheMirrorWithCircuitBreaker) List(ctx context.Context) ([]cache.Record, error) {
	return circuitbreaker.Do(ctx, r.circuitBreaker, r.mirror.List)
}

func (r *CacheMirrorWithCircuitBreaker) Count(ctx context.Context) (int, error) {
	return circuitbreaker.Do(ctx, r.circuitBreaker, r.mirror.Count)
}

func (r *CacheMirrorWithCircuitBreaker) Purge(ctx context.Context) error {
	return r.circuitBreaker.Execute(ctx, func() error {
		return r.mirror.Purge(ctx)
	})
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (r *CacheMirrorWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return r.circuitBreaker
}

var _ cache.Mirror = (*CacheMirrorWithCircuitBreaker)(nil)
