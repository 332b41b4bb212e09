// Package app provides service initialization.
package app

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
	"github.com/guttosm/sunday-edge/internal/datasource"
	"github.com/guttosm/sunday-edge/internal/live"
	"github.com/guttosm/sunday-edge/internal/logger"
	"github.com/guttosm/sunday-edge/internal/service"
)

const (
	oddsAPIHost   = "the-odds-api.com"
	apiSportsHost = "v1.american-football.api-sports.io"
)

// ServiceComponents holds service-related components.
type ServiceComponents struct {
	Store                  *cache.Store
	Fetcher                *service.Fetcher
	Rosters                service.RosterService
	UpstreamCircuitBreaker *circuitbreaker.CircuitBreaker
	// Proxy is nil when the proxy is disabled.
	Proxy service.ProxyService
	// Live is nil when the live channel is disabled.
	Live *service.LiveUpdates
}

// InitializeServices builds the cache store and the services reading through it.
func InitializeServices(cfg config.Config, mirror cache.Mirror) *ServiceComponents {
	store := cache.New(
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		cache.WithCleanupInterval(cfg.Cache.CleanupInterval),
		cache.WithMirror(mirror),
		cache.WithMirrorTimeout(cfg.Cache.MirrorTimeout),
		cache.WithLogger(logger.Component("cache")),
	)
	fetcher := service.NewFetcher(store)

	upstreamCB := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.Upstream.CircuitBreakerFailureThreshold,
		SuccessThreshold: cfg.Upstream.CircuitBreakerSuccessThreshold,
		Timeout:          cfg.Upstream.CircuitBreakerTimeout,
		Name:             "roster-service",
		IsFailure:        datasource.IsUpstreamFailure,
		OnStateChange:    logStateChange,
	})
	client := datasource.NewClientWithCircuitBreaker(
		datasource.NewHTTPClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout),
		upstreamCB,
	)

	components := &ServiceComponents{
		Store:   store,
		Fetcher: fetcher,
		Rosters: service.NewRosterService(client, fetcher, service.RosterTTLs{
			Teams:   cfg.Cache.TeamsTTL,
			Rosters: cfg.Cache.RostersTTL,
			Players: cfg.Cache.PlayersTTL,
		}),
		UpstreamCircuitBreaker: upstreamCB,
	}

	if cfg.Proxy.Enabled {
		components.Proxy = service.NewProxyService(fetcher, proxyConfig(cfg.Proxy))
	}
	if cfg.Live.Enabled {
		components.Live = newLiveUpdates(cfg.Live, store)
	}
	return components
}

func proxyConfig(cfg config.ProxyConfig) service.ProxyConfig {
	pc := service.ProxyConfig{
		AllowedHosts: cfg.AllowedHosts,
		Headers:      map[string]http.Header{},
		Query:        map[string]url.Values{},
		TTL:          cfg.TTL,
		Timeout:      cfg.Timeout,
	}
	if cfg.OddsAPIKey != "" {
		pc.Query[oddsAPIHost] = url.Values{"apiKey": {cfg.OddsAPIKey}}
	}
	if cfg.RapidAPIKey != "" {
		pc.Headers[apiSportsHost] = http.Header{
			"X-Rapidapi-Key":  {cfg.RapidAPIKey},
			"X-Rapidapi-Host": {apiSportsHost},
		}
	}
	return pc
}

func newLiveUpdates(cfg config.LiveConfig, store *cache.Store) *service.LiveUpdates {
	channelLog := logger.Component("live")
	channel := live.NewChannel(live.NewWebSocketDialer(cfg.URL), live.Config{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		OnGiveUp: func(err error) {
			log.Error().Err(err).Str("url", cfg.URL).Msg("Live updates unavailable - serving cached probabilities only")
		},
		Logger: &channelLog,
	})
	return service.NewLiveUpdates(store, channel, service.LiveUpdatesConfig{
		Channels: cfg.Channels,
		UserID:   cfg.UserID,
		TTL:      cfg.ProbabilityTTL,
	})
}
