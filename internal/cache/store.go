// Package cache provides the TTL cache that fronts every upstream data source:
// tag invalidation, LRU size bounding, and a best-effort durable mirror for
// entries that must survive a restart.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/guttosm/sunday-edge/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// entry is a single cached value linked into the access-ordered list.
// value is never modified after construction.
type entry struct {
	key            string
	value          any
	createdAt      time.Time
	ttl            time.Duration
	tags           []string
	persistent     bool
	accessCount    int64
	lastAccessedAt time.Time
	prev           *entry
	next           *entry
}

func (e *entry) fresh(now time.Time) bool {
	return now.Sub(e.createdAt) < e.ttl
}

func (e *entry) hasAnyTag(tags map[string]struct{}) bool {
	return hasAnyTag(e.tags, tags)
}

func hasAnyTag(entryTags []string, tags map[string]struct{}) bool {
	for _, t := range entryTags {
		if _, ok := tags[t]; ok {
			return true
		}
	}
	return false
}

// mirrorStripes is the number of locks that serialize mirror I/O per key.
const mirrorStripes = 32

// pendingOp is the newest mirror operation issued for a key that has not
// finished yet.
type pendingOp struct {
	seq  uint64
	tags []string
}

// Store is a concurrency-safe TTL cache. Every mutation of the in-memory state
// happens under a single mutex; mirror I/O happens outside it, serialized per
// key by a striped lock.
type Store struct {
	mu    sync.Mutex
	items map[string]*entry
	// head is the most recently accessed entry, tail the least.
	head *entry
	tail *entry

	// seq numbers mirror operations. An operation whose seq is no longer the
	// pending one for its key has been superseded and is skipped.
	seq     uint64
	pending map[string]pendingOp
	// epoch is bumped by Delete, ClearByTags and Clear so that an in-flight
	// mirror load does not resurrect what they removed.
	epoch   uint64
	stripes [mirrorStripes]sync.Mutex

	maxEntries      int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	mirror          Mirror
	mirrorTimeout   time.Duration
	now             func() time.Time
	log             zerolog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Store and starts its background sweep unless the cleanup
// interval is zero. Call Stop to end the sweep.
func New(opts ...Option) *Store {
	s := &Store{
		items:           make(map[string]*entry),
		pending:         make(map[string]pendingOp),
		maxEntries:      DefaultMaxEntries,
		defaultTTL:      DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		mirrorTimeout:   DefaultMirrorTimeout,
		now:             time.Now,
		log:             log.Logger.With().Str("component", "cache").Logger(),
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateCacheMetrics(0, s.maxEntries)
	if s.cleanupInterval > 0 {
		go s.startCleanup()
	}
	return s
}

// Stop ends the background sweep. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// MaxEntries returns the configured in-memory limit.
func (s *Store) MaxEntries() int {
	return s.maxEntries
}

// Set stores value under key. A persistent entry is also written to the mirror;
// mirror failures are logged and never fail the call.
func (s *Store) Set(ctx context.Context, key string, value any, opts SetOptions) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()
	e := &entry{
		key:            key,
		value:          value,
		createdAt:      now,
		ttl:            ttl,
		tags:           append([]string(nil), opts.Tags...),
		persistent:     opts.Persistent,
		lastAccessedAt: now,
	}

	s.mu.Lock()
	var wasPersistent bool
	if old, ok := s.items[key]; ok {
		wasPersistent = old.persistent
		s.unlink(old)
	}
	_, inFlight := s.pending[key]
	s.items[key] = e
	s.pushFront(e)
	s.evictLocked(key)
	size := len(s.items)
	mirrored := s.mirror != nil && (opts.Persistent || wasPersistent || inFlight)
	var seq uint64
	if mirrored {
		seq = s.beginMirrorOpLocked(key, e.tags)
	}
	s.mu.Unlock()

	metrics.RecordCacheOperation("set", "success")
	metrics.UpdateCacheMetrics(size, s.maxEntries)

	if !mirrored {
		return
	}
	if opts.Persistent {
		s.runMirrorOp(key, seq, func() { s.persist(ctx, e) })
		return
	}
	// A memory-only overwrite must not be shadowed by an older durable copy.
	s.runMirrorOp(key, seq, func() { s.mirrorRemove(ctx, key) })
}

// Get returns the value stored under key if it is fresh, or stale when
// AllowStale is given. A memory miss consults the mirror and promotes the
// record into memory; promoted values are json.RawMessage (see GetAs).
func (s *Store) Get(ctx context.Context, key string, opts ...GetOption) (any, bool) {
	var cfg getConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	if e, ok := s.items[key]; ok {
		v, hit, result := s.readLocked(e, cfg.allowStale)
		s.mu.Unlock()
		metrics.RecordCacheOperation("get", result)
		return v, hit
	}
	epoch := s.epoch
	s.mu.Unlock()

	rec, ok := s.mirrorLoad(ctx, key)
	if !ok {
		metrics.RecordCacheOperation("get", "miss")
		return nil, false
	}

	s.mu.Lock()
	e, exists := s.items[key]
	if !exists {
		// The record may predate a removal or a write that finished while it
		// was loading.
		if _, inFlight := s.pending[key]; inFlight || s.epoch != epoch {
			s.mu.Unlock()
			metrics.RecordCacheOperation("get", "miss")
			return nil, false
		}
		e = &entry{
			key:            rec.Key,
			value:          rec.Value,
			createdAt:      rec.CreatedAt,
			ttl:            rec.TTL,
			tags:           rec.Tags,
			persistent:     true,
			lastAccessedAt: s.now(),
		}
		s.items[key] = e
		s.pushFront(e)
		s.evictLocked(key)
	}
	v, hit, result := s.readLocked(e, cfg.allowStale)
	size := len(s.items)
	s.mu.Unlock()

	if !exists {
		metrics.RecordCacheOperation("promote", "success")
		metrics.UpdateCacheMetrics(size, s.maxEntries)
	}
	metrics.RecordCacheOperation("get", result)
	return v, hit
}

// readLocked applies freshness rules and touches access statistics on a hit.
func (s *Store) readLocked(e *entry, allowStale bool) (any, bool, string) {
	now := s.now()
	fresh := e.fresh(now)
	if !fresh && !allowStale {
		return nil, false, "expired"
	}
	e.accessCount++
	e.lastAccessedAt = now
	s.moveToFront(e)
	if !fresh {
		return e.value, true, "stale"
	}
	return e.value, true, "hit"
}

// Has reports whether a fresh entry for key is in memory, without touching statistics.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	return ok && e.fresh(s.now())
}

// Delete removes key from memory and from the mirror.
func (s *Store) Delete(ctx context.Context, key string) bool {
	s.mu.Lock()
	e, ok := s.items[key]
	if ok {
		s.removeLocked(e)
	}
	s.epoch++
	size := len(s.items)
	var seq uint64
	if s.mirror != nil {
		seq = s.beginMirrorOpLocked(key, nil)
	}
	s.mu.Unlock()

	if s.mirror != nil {
		s.runMirrorOp(key, seq, func() { s.mirrorRemove(ctx, key) })
	}
	if ok {
		metrics.RecordCacheOperation("delete", "success")
		metrics.UpdateCacheMetrics(size, s.maxEntries)
	}
	return ok
}

// ClearByTags removes every entry, in memory or durable, that carries any of
// the given tags. It returns the number of distinct keys removed.
func (s *Store) ClearByTags(ctx context.Context, tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wanted[t] = struct{}{}
	}

	removed := make(map[string]struct{})
	s.mu.Lock()
	for key, e := range s.items {
		if e.hasAnyTag(wanted) {
			s.removeLocked(e)
			removed[key] = struct{}{}
		}
	}
	// Queued writes of matching keys must not land after the sweep.
	for key, op := range s.pending {
		if hasAnyTag(op.tags, wanted) {
			delete(s.pending, key)
		}
	}
	s.epoch++
	size := len(s.items)
	s.mu.Unlock()

	s.sweepMirror(ctx, "clear_tags", removed, func(rec Record) bool {
		return hasAnyTag(rec.Tags, wanted)
	})

	metrics.RecordCacheOperation("clear_tags", "success")
	metrics.UpdateCacheMetrics(size, s.maxEntries)
	s.log.Debug().Strs("tags", tags).Int("removed", len(removed)).Msg("Cleared cache entries by tag")
	return len(removed)
}

// Clear removes everything from memory and the mirror.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = make(map[string]*entry)
	s.head = nil
	s.tail = nil
	s.pending = make(map[string]pendingOp)
	s.epoch++
	s.mu.Unlock()

	if s.mirror != nil {
		unlock := s.lockAllStripes()
		defer unlock()
		mctx, cancel := s.mirrorContext(ctx)
		defer cancel()
		if err := s.mirror.Purge(mctx); err != nil {
			s.mirrorFailed("purge", "", err)
		}
	}

	metrics.RecordCacheOperation("clear", "success")
	metrics.UpdateCacheMetrics(0, s.maxEntries)
}

// Cleanup removes every expired entry from memory and the mirror and returns
// the number of distinct keys removed. It runs on the background sweep.
func (s *Store) Cleanup(ctx context.Context) int {
	now := s.now()
	removed := make(map[string]struct{})

	s.mu.Lock()
	for key, e := range s.items {
		if !e.fresh(now) {
			s.removeLocked(e)
			removed[key] = struct{}{}
		}
	}
	size := len(s.items)
	s.mu.Unlock()

	s.sweepMirror(ctx, "cleanup", removed, func(rec Record) bool {
		return rec.Expired(now)
	})

	if len(removed) > 0 {
		metrics.RecordCacheOperation("cleanup", "expired")
		s.log.Debug().Int("removed", len(removed)).Msg("Swept expired cache entries")
	}
	metrics.UpdateCacheMetrics(size, s.maxEntries)
	return len(removed)
}

func (s *Store) startCleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// sweepMirror removes mirror records matching match and adds their keys to removed.
func (s *Store) sweepMirror(ctx context.Context, op string, removed map[string]struct{}, match func(Record) bool) {
	if s.mirror == nil {
		return
	}
	unlock := s.lockAllStripes()
	defer unlock()
	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()

	records, err := s.mirror.List(mctx)
	if err != nil {
		s.mirrorFailed(op, "", err)
		return
	}
	var keys []string
	for _, rec := range records {
		if match(rec) {
			keys = append(keys, rec.Key)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.mirror.Remove(mctx, keys...); err != nil {
		s.mirrorFailed(op, "", err)
		return
	}
	for _, k := range keys {
		removed[k] = struct{}{}
	}
}

// evictLocked drops least recently accessed entries until the store fits,
// never evicting keep.
func (s *Store) evictLocked(keep string) {
	for len(s.items) > s.maxEntries {
		victim := s.tail
		for victim != nil && victim.key == keep {
			victim = victim.prev
		}
		if victim == nil {
			return
		}
		s.removeLocked(victim)
		metrics.RecordCacheOperation("evict", "capacity")
		s.log.Debug().Str("key", victim.key).Msg("Evicted cache entry")
	}
}

func (s *Store) removeLocked(e *entry) {
	delete(s.items, e.key)
	s.unlink(e)
}

func (s *Store) pushFront(e *entry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *Store) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	s.unlink(e)
	s.pushFront(e)
}

func (s *Store) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if s.head == e {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if s.tail == e {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

// beginMirrorOpLocked records a new mirror operation for key and returns its
// sequence number. Callers hold s.mu.
func (s *Store) beginMirrorOpLocked(key string, tags []string) uint64 {
	s.seq++
	s.pending[key] = pendingOp{seq: s.seq, tags: tags}
	return s.seq
}

// runMirrorOp runs op under the key's stripe lock unless a newer operation
// for the same key was issued in the meantime. Operations on one key reach
// the mirror in the order they were issued.
func (s *Store) runMirrorOp(key string, seq uint64, op func()) {
	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	s.mu.Lock()
	current := s.pending[key].seq == seq
	s.mu.Unlock()
	if current {
		op()
	}

	s.mu.Lock()
	if p, ok := s.pending[key]; ok && p.seq == seq {
		delete(s.pending, key)
	}
	s.mu.Unlock()
}

func (s *Store) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.stripes[h.Sum32()%mirrorStripes]
}

// lockAllStripes blocks every per-key mirror operation and returns the unlock.
func (s *Store) lockAllStripes() func() {
	for i := range s.stripes {
		s.stripes[i].Lock()
	}
	return func() {
		for i := len(s.stripes) - 1; i >= 0; i-- {
			s.stripes[i].Unlock()
		}
	}
}

func (s *Store) mirrorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.mirrorTimeout)
}

func (s *Store) mirrorFailed(op, key string, err error) {
	metrics.RecordMirrorOperation(op, "error")
	s.log.Warn().Err(err).Str("operation", op).Str("key", key).Msg("Durable cache mirror unavailable, continuing memory-only")
}

func (s *Store) mirrorLoad(ctx context.Context, key string) (Record, bool) {
	if s.mirror == nil {
		return Record{}, false
	}
	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()

	rec, err := s.mirror.Load(mctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.mirrorFailed("load", key, err)
		}
		return Record{}, false
	}
	if rec.Key == "" {
		rec.Key = key
	}
	return rec, true
}

func (s *Store) mirrorRemove(ctx context.Context, key string) {
	if s.mirror == nil {
		return
	}
	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()
	if err := s.mirror.Remove(mctx, key); err != nil {
		s.mirrorFailed("remove", key, err)
	}
}

// persist writes e to the mirror. When the mirror is full the oldest records
// are pruned and the write is retried once.
func (s *Store) persist(ctx context.Context, e *entry) {
	if s.mirror == nil {
		return
	}
	value, err := json.Marshal(e.value)
	if err != nil {
		s.log.Warn().Err(err).Str("key", e.key).Msg("Cache value is not serializable, kept in memory only")
		metrics.RecordMirrorOperation("save", "unserializable")
		return
	}
	rec := Record{
		Key:       e.key,
		Value:     value,
		CreatedAt: e.createdAt,
		TTL:       e.ttl,
		Tags:      e.tags,
	}

	mctx, cancel := s.mirrorContext(ctx)
	defer cancel()

	err = s.mirror.Save(mctx, rec)
	if errors.Is(err, ErrQuotaExceeded) {
		metrics.RecordMirrorOperation("save", "quota_exceeded")
		s.pruneOldest(mctx, e.key)
		err = s.mirror.Save(mctx, rec)
	}
	if err != nil {
		s.mirrorFailed("save", e.key, err)
		return
	}
	metrics.RecordMirrorOperation("save", "success")
}

// pruneOldest removes the older half (at least one) of the mirror's records,
// excluding keep.
func (s *Store) pruneOldest(ctx context.Context, keep string) {
	records, err := s.mirror.List(ctx)
	if err != nil {
		s.mirrorFailed("prune", keep, err)
		return
	}
	candidates := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Key != keep {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return
	}
	sortRecordsByAge(candidates)

	n := (len(candidates) + 1) / 2
	keys := make([]string, 0, n)
	for _, rec := range candidates[:n] {
		keys = append(keys, rec.Key)
	}
	if err := s.mirror.Remove(ctx, keys...); err != nil {
		s.mirrorFailed("prune", keep, err)
		return
	}
	metrics.RecordMirrorOperation("prune", "success")
	s.log.Info().Int("pruned", len(keys)).Msg("Pruned oldest durable cache entries")
}
