package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by a Mirror when a key has no record.
	ErrNotFound = errors.New("cache: record not found")
	// ErrQuotaExceeded is returned by a Mirror that has no room for a record.
	ErrQuotaExceeded = errors.New("cache: durable storage quota exceeded")
)

// Record is the durable form of a persistent entry.
type Record struct {
	Key       string
	Value     json.RawMessage
	CreatedAt time.Time
	TTL       time.Duration
	Tags      []string
}

// Expired reports whether the record's freshness window has elapsed at now.
func (r Record) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) >= r.TTL
}

// Mirror is durable storage for persistent entries. Implementations must be
// safe for concurrent use. The Store treats every Mirror error as soft.
type Mirror interface {
	Load(ctx context.Context, key string) (Record, error)
	Save(ctx context.Context, rec Record) error
	Remove(ctx context.Context, keys ...string) error
	List(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Purge(ctx context.Context) error
}

// storedRecord is the JSON document a MemoryMirror keeps per key.
type storedRecord struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt int64           `json:"createdAt"`
	TTLMs     int64           `json:"ttlMs"`
	Tags      []string        `json:"tags,omitempty"`
}

func encodeRecord(rec Record) (string, error) {
	b, err := json.Marshal(storedRecord{
		Key:       rec.Key,
		Value:     rec.Value,
		CreatedAt: rec.CreatedAt.UnixMilli(),
		TTLMs:     rec.TTL.Milliseconds(),
		Tags:      rec.Tags,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRecord(raw string) (Record, error) {
	var sr storedRecord
	if err := json.Unmarshal([]byte(raw), &sr); err != nil {
		return Record{}, err
	}
	return Record{
		Key:       sr.Key,
		Value:     sr.Value,
		CreatedAt: time.UnixMilli(sr.CreatedAt),
		TTL:       time.Duration(sr.TTLMs) * time.Millisecond,
		Tags:      sr.Tags,
	}, nil
}

// DefaultMemoryMirrorCapacity matches the usual 5MB browser storage quota.
const DefaultMemoryMirrorCapacity = 5 << 20

// MemoryMirror is a byte-capped key to JSON-string mirror. It is used when
// no external database is configured and as the test double for durable storage.
type MemoryMirror struct {
	mu       sync.Mutex
	data     map[string]string
	used     int
	capacity int
}

// NewMemoryMirror creates a mirror holding at most capacity bytes of keys and
// JSON documents. A non-positive capacity uses DefaultMemoryMirrorCapacity.
func NewMemoryMirror(capacity int) *MemoryMirror {
	if capacity <= 0 {
		capacity = DefaultMemoryMirrorCapacity
	}
	return &MemoryMirror{
		data:     make(map[string]string),
		capacity: capacity,
	}
}

// Load returns the record stored under key.
func (m *MemoryMirror) Load(_ context.Context, key string) (Record, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return decodeRecord(raw)
}

// Save stores rec, replacing any previous record for the same key.
func (m *MemoryMirror) Save(_ context.Context, rec Record) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used + len(rec.Key) + len(raw)
	if old, ok := m.data[rec.Key]; ok {
		used -= len(rec.Key) + len(old)
	}
	if used > m.capacity {
		return ErrQuotaExceeded
	}
	m.data[rec.Key] = raw
	m.used = used
	return nil
}

// Remove deletes the given keys. Missing keys are ignored.
func (m *MemoryMirror) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if old, ok := m.data[key]; ok {
			m.used -= len(key) + len(old)
			delete(m.data, key)
		}
	}
	return nil
}

// List returns every decodable record ordered by creation time.
// Corrupt documents are dropped from the mirror.
func (m *MemoryMirror) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]Record, 0, len(m.data))
	for key, raw := range m.data {
		rec, err := decodeRecord(raw)
		if err != nil {
			m.used -= len(key) + len(raw)
			delete(m.data, key)
			continue
		}
		records = append(records, rec)
	}
	sortRecordsByAge(records)
	return records, nil
}

// Count returns the number of stored records.
func (m *MemoryMirror) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data), nil
}

// Purge removes every record.
func (m *MemoryMirror) Purge(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	m.used = 0
	return nil
}

// Used returns the number of bytes currently held.
func (m *MemoryMirror) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}
