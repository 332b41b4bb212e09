package cache

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Expired(t *testing.T) {
	created := time.UnixMilli(1_700_000_000_000)
	rec := Record{CreatedAt: created, TTL: time.Minute}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just created", created, false},
		{"inside window", created.Add(59 * time.Second), false},
		{"at boundary", created.Add(time.Minute), true},
		{"past window", created.Add(time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rec.Expired(tt.now))
		})
	}
}

func TestMemoryMirror_SaveLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMirror(0)

	rec := Record{
		Key:       "roster:12",
		Value:     json.RawMessage(`[{"name":"Patrick Mahomes","position":"QB"}]`),
		CreatedAt: time.UnixMilli(1_700_000_000_000),
		TTL:       10 * time.Minute,
		Tags:      []string{"rosters", "team:12"},
	}
	require.NoError(t, m.Save(ctx, rec))

	got, err := m.Load(ctx, "roster:12")
	require.NoError(t, err)
	assert.Equal(t, rec.Key, got.Key)
	assert.JSONEq(t, string(rec.Value), string(got.Value))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.TTL, got.TTL)
	assert.Equal(t, rec.Tags, got.Tags)

	_, err = m.Load(ctx, "roster:99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMirror_Quota(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMirror(180)

	small := Record{Key: "a", Value: json.RawMessage(`1`), CreatedAt: time.UnixMilli(1), TTL: time.Second}
	require.NoError(t, m.Save(ctx, small))
	used := m.Used()
	assert.Positive(t, used)

	big := Record{Key: "b", Value: json.RawMessage(`"` + strings.Repeat("a", 100) + `"`), CreatedAt: time.UnixMilli(2), TTL: time.Second}
	assert.ErrorIs(t, m.Save(ctx, big), ErrQuotaExceeded)
	assert.Equal(t, used, m.Used(), "failed save leaves usage untouched")

	// Replacing a record accounts for the bytes it frees.
	require.NoError(t, m.Save(ctx, small))
	assert.Equal(t, used, m.Used())

	require.NoError(t, m.Remove(ctx, "a", "missing"))
	assert.Equal(t, 0, m.Used())
	assert.NoError(t, m.Save(ctx, big))
}

func TestMemoryMirror_ListOrderAndCorruption(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMirror(0)

	for i, key := range []string{"c", "a", "b"} {
		require.NoError(t, m.Save(ctx, Record{
			Key:       key,
			Value:     json.RawMessage(`true`),
			CreatedAt: time.UnixMilli(int64(1000 * (3 - i))),
			TTL:       time.Minute,
		}))
	}
	m.mu.Lock()
	m.data["broken"] = "{not json"
	m.used += len("broken") + len("{not json")
	m.mu.Unlock()

	records, err := m.List(ctx)
	require.NoError(t, err)
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "corrupt documents are dropped")
}

func TestMemoryMirror_Purge(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMirror(0)
	require.NoError(t, m.Save(ctx, Record{Key: "k", Value: json.RawMessage(`1`), TTL: time.Second}))

	require.NoError(t, m.Purge(ctx))
	n, _ := m.Count(ctx)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, m.Used())
}
