package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/sunday-edge/internal/cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultMirrorMaxEntries caps the number of stored documents.
	DefaultMirrorMaxEntries = 500
	// DefaultStaleRetention is how long past expiry a document is kept for stale reads.
	DefaultStaleRetention = 24 * time.Hour

	// maxValueBytes keeps documents well under the 16MB BSON limit.
	maxValueBytes = 8 << 20
)

// CacheEntryDocument is a persistent cache entry as stored in MongoDB.
type CacheEntryDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	CreatedAt time.Time `bson:"created_at"`
	TTLMs     int64     `bson:"ttl_ms"`
	Tags      []string  `bson:"tags,omitempty"`
	PurgeAt   time.Time `bson:"purge_at"`
}

func (d CacheEntryDocument) record() cache.Record {
	return cache.Record{
		Key:       d.Key,
		Value:     []byte(d.Value),
		CreatedAt: d.CreatedAt,
		TTL:       time.Duration(d.TTLMs) * time.Millisecond,
		Tags:      d.Tags,
	}
}

// CacheMirror implements cache.Mirror on the cache_entries collection.
// Reaching maxEntries documents is reported as cache.ErrQuotaExceeded.
type CacheMirror struct {
	collection *mongo.Collection
	maxEntries int64
	retention  time.Duration
}

// NewCacheMirror creates a mirror over db. Non-positive arguments use the defaults.
func NewCacheMirror(db *MongoDB, maxEntries int, retention time.Duration) *CacheMirror {
	if maxEntries <= 0 {
		maxEntries = DefaultMirrorMaxEntries
	}
	if retention <= 0 {
		retention = DefaultStaleRetention
	}
	return &CacheMirror{
		collection: db.CacheEntries,
		maxEntries: int64(maxEntries),
		retention:  retention,
	}
}

func (m *CacheMirror) Load(ctx context.Context, key string) (cache.Record, error) {
	var doc CacheEntryDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cache.Record{}, cache.ErrNotFound
	}
	if err != nil {
		return cache.Record{}, err
	}
	return doc.record(), nil
}

func (m *CacheMirror) Save(ctx context.Context, rec cache.Record) error {
	if len(rec.Value) > maxValueBytes {
		return fmt.Errorf("%w: value of %d bytes", cache.ErrQuotaExceeded, len(rec.Value))
	}

	// maxEntries is a soft quota: concurrent saves of new keys can pass the
	// count together and overshoot it by a few documents.
	n, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if n >= m.maxEntries {
		exists, err := m.collection.CountDocuments(ctx, bson.M{"_id": rec.Key}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if exists == 0 {
			return cache.ErrQuotaExceeded
		}
	}

	doc := CacheEntryDocument{
		Key:       rec.Key,
		Value:     string(rec.Value),
		CreatedAt: rec.CreatedAt,
		TTLMs:     rec.TTL.Milliseconds(),
		Tags:      rec.Tags,
		PurgeAt:   rec.CreatedAt.Add(rec.TTL + m.retention),
	}
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": rec.Key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *CacheMirror) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := m.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}

// List returns every stored record, oldest first.
func (m *CacheMirror) List(ctx context.Context) ([]cache.Record, error) {
	cursor, err := m.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []CacheEntryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	records := make([]cache.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

func (m *CacheMirror) Count(ctx context.Context) (int, error) {
	n, err := m.collection.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (m *CacheMirror) Purge(ctx context.Context) error {
	_, err := m.collection.DeleteMany(ctx, bson.M{})
	return err
}

var _ cache.Mirror = (*CacheMirror)(nil)
