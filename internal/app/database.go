// Package app provides database initialization and setup.
package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
	"github.com/guttosm/sunday-edge/internal/repository"
)

// DatabaseComponents holds the durable cache mirror and its backing store.
type DatabaseComponents struct {
	// DB is nil when the mirror lives in memory.
	DB                   *repository.MongoDB
	Mirror               cache.Mirror
	MirrorCircuitBreaker *circuitbreaker.CircuitBreaker
}

// InitializeDatabase connects the MongoDB cache mirror. When the database is
// disabled or unreachable it falls back to an in-memory mirror.
func InitializeDatabase(cfg config.DatabaseConfig, cacheCfg config.CacheConfig) *DatabaseComponents {
	if !cfg.Enabled {
		return memoryMirror()
	}

	db, err := repository.NewMongoDB(cfg.URI, cfg.DatabaseName)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to MongoDB - continuing with in-memory cache mirror")
		return memoryMirror()
	}

	log.Info().Str("database", cfg.DatabaseName).Msg("Connected to MongoDB")

	mirrorCB := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.CircuitBreakerTimeout,
		Name:             "mongodb-cache-mirror",
		IsFailure:        repository.IsMirrorFailure,
		OnStateChange:    logStateChange,
	})
	mirror := repository.NewCacheMirror(db, cacheCfg.MirrorMaxEntries, cacheCfg.StaleRetention)

	return &DatabaseComponents{
		DB:                   db,
		Mirror:               repository.NewCacheMirrorWithCircuitBreaker(mirror, mirrorCB),
		MirrorCircuitBreaker: mirrorCB,
	}
}

// Close disconnects from MongoDB, if connected.
func (d *DatabaseComponents) Close(ctx context.Context) error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close(ctx)
}

func memoryMirror() *DatabaseComponents {
	return &DatabaseComponents{Mirror: cache.NewMemoryMirror(cache.DefaultMemoryMirrorCapacity)}
}

func logStateChange(name string, from, to circuitbreaker.State) {
	log.Warn().
		Str("circuit_breaker", name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Circuit breaker state changed")
}
