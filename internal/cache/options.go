package cache

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxEntries is the in-memory entry limit.
	DefaultMaxEntries = 100
	// DefaultTTL applies when a Set call does not specify one.
	DefaultTTL = 30 * time.Second
	// DefaultCleanupInterval is how often expired entries are swept.
	DefaultCleanupInterval = 2 * time.Minute
	// DefaultMirrorTimeout bounds each durable mirror call.
	DefaultMirrorTimeout = 2 * time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries sets the in-memory entry limit.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithDefaultTTL sets the TTL used when SetOptions.TTL is zero.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithCleanupInterval sets the sweep interval. Zero disables the background sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.cleanupInterval = d
		}
	}
}

// WithMirror attaches durable storage for persistent entries.
func WithMirror(m Mirror) Option {
	return func(s *Store) {
		s.mirror = m
	}
}

// WithMirrorTimeout bounds every mirror call.
func WithMirrorTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.mirrorTimeout = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// SetOptions controls how a value is stored.
type SetOptions struct {
	TTL        time.Duration
	Persistent bool
	Tags       []string
}

type getConfig struct {
	allowStale bool
}

// GetOption configures a Get call.
type GetOption func(*getConfig)

// AllowStale makes Get return entries whose TTL has elapsed.
func AllowStale() GetOption {
	return func(c *getConfig) {
		c.allowStale = true
	}
}
