//go:build !integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/cache"
)

func TestInitializeDatabase_Disabled(t *testing.T) {
	components := InitializeDatabase(config.DatabaseConfig{Enabled: false}, config.CacheConfig{})

	require.NotNil(t, components)
	assert.Nil(t, components.DB)
	assert.Nil(t, components.MirrorCircuitBreaker)
	assert.IsType(t, &cache.MemoryMirror{}, components.Mirror)
	assert.NoError(t, components.Close(context.Background()))
}

func TestInitializeDatabase_MemoryMirrorWorks(t *testing.T) {
	ctx := context.Background()
	components := InitializeDatabase(config.DatabaseConfig{}, config.CacheConfig{})

	rec := cache.Record{Key: "nfl:teams", Value: []byte(`[]`), CreatedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, components.Mirror.Save(ctx, rec))

	got, err := components.Mirror.Load(ctx, "nfl:teams")
	require.NoError(t, err)
	assert.Equal(t, "nfl:teams", got.Key)
}

func TestDatabaseComponents_CloseNil(t *testing.T) {
	var components *DatabaseComponents
	assert.NoError(t, components.Close(context.Background()))
}
