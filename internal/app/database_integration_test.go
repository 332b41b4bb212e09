//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
	"github.com/guttosm/sunday-edge/internal/repository"
)

func TestInitializeDatabase_Integration(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled database uses the MongoDB mirror", func(t *testing.T) {
		components := InitializeDatabase(mongoConfig(t), config.CacheConfig{MirrorMaxEntries: 10})
		require.NotNil(t, components.DB)
		t.Cleanup(func() {
			_ = components.DB.Database.Drop(ctx)
			_ = components.Close(ctx)
		})

		assert.IsType(t, &repository.CacheMirrorWithCircuitBreaker{}, components.Mirror)
		require.NotNil(t, components.MirrorCircuitBreaker)
		assert.Equal(t, circuitbreaker.StateClosed, components.MirrorCircuitBreaker.State())

		rec := cache.Record{Key: "nfl:teams", Value: []byte(`[]`), CreatedAt: time.Now(), TTL: time.Minute}
		require.NoError(t, components.Mirror.Save(ctx, rec))
		n, err := components.Mirror.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = components.Mirror.Load(ctx, "missing")
		assert.ErrorIs(t, err, cache.ErrNotFound)
		assert.NoError(t, components.DB.HealthCheck(ctx))
	})

	t.Run("unreachable database falls back to memory", func(t *testing.T) {
		cfg := mongoConfig(t)
		cfg.URI = "mongodb://127.0.0.1:1/?connectTimeoutMS=500"

		components := InitializeDatabase(cfg, config.CacheConfig{})
		assert.Nil(t, components.DB)
		assert.IsType(t, &cache.MemoryMirror{}, components.Mirror)
	})
}
