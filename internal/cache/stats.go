package cache

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// Stats is a read-only diagnostic snapshot of a Store.
type Stats struct {
	MemorySize  int           `json:"memory_size"`
	DurableSize int           `json:"durable_size"`
	MaxEntries  int           `json:"max_entries"`
	Valid       int           `json:"valid"`
	Expired     int           `json:"expired"`
	TotalAccess int64         `json:"total_access"`
	AverageAge  time.Duration `json:"average_age_ns"`
}

// Stats reports counts for memory and the durable mirror. A mirror that
// cannot be reached reports a DurableSize of zero.
func (s *Store) Stats(ctx context.Context) Stats {
	now := s.now()
	st := Stats{MaxEntries: s.maxEntries}

	s.mu.Lock()
	var totalAge time.Duration
	for _, e := range s.items {
		if e.fresh(now) {
			st.Valid++
		} else {
			st.Expired++
		}
		st.TotalAccess += e.accessCount
		totalAge += now.Sub(e.createdAt)
	}
	st.MemorySize = len(s.items)
	s.mu.Unlock()

	if st.MemorySize > 0 {
		st.AverageAge = totalAge / time.Duration(st.MemorySize)
	}

	if s.mirror != nil {
		mctx, cancel := s.mirrorContext(ctx)
		defer cancel()
		n, err := s.mirror.Count(mctx)
		if err != nil {
			s.mirrorFailed("count", "", err)
		} else {
			st.DurableSize = n
		}
	}
	return st
}

func sortRecordsByAge(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}

// GetAs is Get with a typed result. Values promoted from the mirror are
// decoded from JSON into T.
func GetAs[T any](ctx context.Context, s *Store, key string, opts ...GetOption) (T, bool) {
	v, ok := s.Get(ctx, key, opts...)
	if !ok {
		var zero T
		return zero, false
	}
	return As[T](v)
}

// As converts a cached value to T, decoding json.RawMessage when needed.
func As[T any](v any) (T, bool) {
	var zero T
	switch tv := v.(type) {
	case T:
		return tv, true
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(tv, &out); err != nil {
			return zero, false
		}
		return out, true
	default:
		return zero, false
	}
}
