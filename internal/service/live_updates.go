package service

import (
	"context"
	"sync"
	"time"

	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/guttosm/sunday-edge/internal/domain/model"
	"github.com/guttosm/sunday-edge/internal/live"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TagProbabilities tags every cached live probability snapshot.
const TagProbabilities = "probabilities"

// DefaultProbabilityTTL is how long a live update counts as fresh.
const DefaultProbabilityTTL = 30 * time.Second

// ProbabilityKey is the cache key for a game's latest probabilities.
func ProbabilityKey(gameID string) string { return "probability:" + gameID }

// GameTag tags every entry that belongs to gameID.
func GameTag(gameID string) string { return "game:" + gameID }

// LiveUpdatesConfig configures LiveUpdates.
type LiveUpdatesConfig struct {
	Channels []string
	UserID   string
	TTL      time.Duration
	Now      func() time.Time
}

// LiveUpdates writes probability updates from the live channel through to the cache.
type LiveUpdates struct {
	store   *cache.Store
	channel *live.Channel
	cfg     LiveUpdatesConfig
	log     zerolog.Logger

	startOnce sync.Once
}

// NewLiveUpdates wires channel to store. Call Start to connect.
func NewLiveUpdates(store *cache.Store, channel *live.Channel, cfg LiveUpdatesConfig) *LiveUpdates {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultProbabilityTTL
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{"game-updates"}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LiveUpdates{
		store:   store,
		channel: channel,
		cfg:     cfg,
		log:     log.Logger.With().Str("component", "live_updates").Logger(),
	}
}

// Start registers the update handler, queues subscriptions and connects.
// Only the first call has any effect.
func (l *LiveUpdates) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		live.Handle(l.channel, l.onProbabilityUpdate)
		live.Handle(l.channel, func(m live.SubscriptionConfirmed) {
			l.log.Info().Str("channel", m.Channel).Msg("Live subscription confirmed")
		})
		for _, ch := range l.cfg.Channels {
			l.channel.Subscribe(ch, live.SubscribeParams{UserID: l.cfg.UserID})
		}
		l.channel.Connect(ctx)
	})
}

// Stop closes the live channel.
func (l *LiveUpdates) Stop() error {
	return l.channel.Close()
}

// Status reports the live channel state.
func (l *LiveUpdates) Status() live.Status {
	return l.channel.Status()
}

// Latest returns the most recent snapshot for gameID. Expired snapshots are
// still returned, with OutcomeStaleFallback.
func (l *LiveUpdates) Latest(ctx context.Context, gameID string) (model.GameProbability, Outcome, bool) {
	key := ProbabilityKey(gameID)
	if p, ok := cache.GetAs[model.GameProbability](ctx, l.store, key); ok {
		return p, OutcomeCacheHit, true
	}
	if p, ok := cache.GetAs[model.GameProbability](ctx, l.store, key, cache.AllowStale()); ok {
		return p, OutcomeStaleFallback, true
	}
	return model.GameProbability{}, OutcomeFailed, false
}

func (l *LiveUpdates) onProbabilityUpdate(u live.ProbabilityUpdate) {
	if u.GameID == "" {
		l.log.Warn().Msg("Dropping probability update without game id")
		return
	}
	snapshot := model.GameProbability{
		GameID:        u.GameID,
		Probabilities: u.Probabilities,
		GameState:     u.GameState,
		ReceivedAt:    l.cfg.Now().UTC(),
	}
	l.store.Set(context.Background(), ProbabilityKey(u.GameID), snapshot, cache.SetOptions{
		TTL:  l.cfg.TTL,
		Tags: []string{TagProbabilities, GameTag(u.GameID)},
	})
	l.log.Debug().Str("game_id", u.GameID).Msg("Stored live probability update")
}
