// Package service contains the business logic for the Sunday Edge data service.
package service

import (
	"context"
	"time"

	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/guttosm/sunday-edge/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Outcome reports where a Call result came from.
type Outcome int

const (
	// OutcomeFetched means fetch succeeded and the result was cached.
	OutcomeFetched Outcome = iota
	// OutcomeCacheHit means a fresh cached value was returned without fetching.
	OutcomeCacheHit
	// OutcomeStaleFallback means fetch failed and a cached value was served instead.
	OutcomeStaleFallback
	// OutcomeFailed means fetch failed and nothing was cached.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeCacheHit:
		return "cache_hit"
	case OutcomeStaleFallback:
		return "stale_fallback"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CacheStatus is the X-Cache header value for o.
func (o Outcome) CacheStatus() string {
	switch o {
	case OutcomeCacheHit:
		return "hit"
	case OutcomeStaleFallback:
		return "stale"
	default:
		return "miss"
	}
}

// CallOptions controls a single Call.
type CallOptions struct {
	// Resource labels metrics and logs. Defaults to the cache key.
	Resource     string
	TTL          time.Duration
	Persistent   bool
	Tags         []string
	ForceRefresh bool
}

// Fetcher composes a cache.Store with arbitrary fetch functions.
type Fetcher struct {
	store *cache.Store
	log   zerolog.Logger
}

// NewFetcher creates a Fetcher backed by store.
func NewFetcher(store *cache.Store) *Fetcher {
	return &Fetcher{
		store: store,
		log:   log.Logger.With().Str("component", "fetcher").Logger(),
	}
}

// Store returns the underlying cache.
func (f *Fetcher) Store() *cache.Store {
	return f.store
}

// Call returns the fresh cached value for key, or runs fetch and caches its
// result. When fetch fails, any cached value for key, fresh or stale, is
// returned with OutcomeStaleFallback and a nil error; otherwise the fetch
// error is returned unchanged.
//
// Concurrent calls for the same key may both fetch; the last write wins.
func Call[T any](ctx context.Context, f *Fetcher, key string, fetch func(context.Context) (T, error), opts CallOptions) (T, Outcome, error) {
	resource := opts.Resource
	if resource == "" {
		resource = key
	}

	if !opts.ForceRefresh {
		if v, ok := cache.GetAs[T](ctx, f.store, key); ok {
			metrics.RecordUpstreamFetch(resource, OutcomeCacheHit.String())
			return v, OutcomeCacheHit, nil
		}
	}

	v, err := fetch(ctx)
	if err == nil {
		f.store.Set(ctx, key, v, cache.SetOptions{
			TTL:        opts.TTL,
			Persistent: opts.Persistent,
			Tags:       opts.Tags,
		})
		metrics.RecordUpstreamFetch(resource, OutcomeFetched.String())
		return v, OutcomeFetched, nil
	}

	if cached, ok := cache.GetAs[T](ctx, f.store, key, cache.AllowStale()); ok {
		f.log.Warn().Err(err).Str("resource", resource).Str("key", key).Msg("Upstream fetch failed, serving cached data")
		metrics.RecordUpstreamFetch(resource, OutcomeStaleFallback.String())
		return cached, OutcomeStaleFallback, nil
	}

	f.log.Error().Err(err).Str("resource", resource).Str("key", key).Msg("Upstream fetch failed with no cached fallback")
	metrics.RecordUpstreamFetch(resource, OutcomeFailed.String())
	var zero T
	return zero, OutcomeFailed, err
}
