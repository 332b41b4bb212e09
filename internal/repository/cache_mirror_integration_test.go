//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMirror_Integration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mirror := NewCacheMirror(setupTestDB(t), 3, time.Hour)

	created := time.UnixMilli(1_700_000_000_000).UTC()
	rec := cache.Record{
		Key:       "nfl:roster:12",
		Value:     []byte(`{"team":{"id":"12"},"roster":[]}`),
		CreatedAt: created,
		TTL:       10 * time.Minute,
		Tags:      []string{"rosters", "team:12"},
	}

	t.Run("load missing", func(t *testing.T) {
		_, err := mirror.Load(ctx, "nope")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, mirror.Save(ctx, rec))
		got, err := mirror.Load(ctx, rec.Key)
		require.NoError(t, err)
		assert.Equal(t, rec.Key, got.Key)
		assert.JSONEq(t, string(rec.Value), string(got.Value))
		assert.True(t, created.Equal(got.CreatedAt))
		assert.Equal(t, rec.TTL, got.TTL)
		assert.Equal(t, rec.Tags, got.Tags)
	})

	t.Run("quota", func(t *testing.T) {
		for i := 1; i <= 2; i++ {
			require.NoError(t, mirror.Save(ctx, cache.Record{
				Key:       fmt.Sprintf("k%d", i),
				Value:     []byte(`1`),
				CreatedAt: created.Add(time.Duration(i) * time.Second),
				TTL:       time.Minute,
			}))
		}
		err := mirror.Save(ctx, cache.Record{Key: "k3", Value: []byte(`1`), CreatedAt: created, TTL: time.Minute})
		assert.ErrorIs(t, err, cache.ErrQuotaExceeded)

		assert.NoError(t, mirror.Save(ctx, rec), "overwriting an existing key fits")
	})

	t.Run("list oldest first", func(t *testing.T) {
		records, err := mirror.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, []string{rec.Key, "k1", "k2"}, []string{records[0].Key, records[1].Key, records[2].Key})
	})

	t.Run("remove and purge", func(t *testing.T) {
		require.NoError(t, mirror.Remove(ctx, "k1", "missing"))
		n, err := mirror.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, mirror.Purge(ctx))
		n, err = mirror.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestCacheMirror_StoreRestart_Integration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	first := cache.New(cache.WithMirror(NewCacheMirror(db, 0, 0)), cache.WithCleanupInterval(0))
	first.Set(ctx, "nfl:teams", []map[string]string{{"id": "12", "abbreviation": "KC"}}, cache.SetOptions{
		TTL:        5 * time.Minute,
		Persistent: true,
		Tags:       []string{"teams"},
	})
	first.Stop()

	second := cache.New(cache.WithMirror(NewCacheMirror(db, 0, 0)), cache.WithCleanupInterval(0))
	defer second.Stop()

	teams, ok := cache.GetAs[[]map[string]string](ctx, second, "nfl:teams")
	require.True(t, ok)
	assert.Equal(t, "KC", teams[0]["abbreviation"])

	assert.Equal(t, 1, second.ClearByTags(ctx, "teams"))
	n, err := NewCacheMirror(db, 0, 0).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
