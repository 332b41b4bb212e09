// Package app provides router configuration.
package app

import (
	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/http"
	"github.com/guttosm/sunday-edge/internal/middleware"
)

// RouterComponents holds router-related components.
type RouterComponents struct {
	Handler       *http.Handler
	HealthHandler *http.HealthHandler
	Config        http.RouterConfig
}

// InitializeRouter initializes HTTP handlers and router configuration.
func InitializeRouter(services *ServiceComponents, db *DatabaseComponents, cfg config.Config) *RouterComponents {
	healthHandler := http.NewHealthHandler()
	healthHandler.RegisterCircuitBreaker("roster_service", services.UpstreamCircuitBreaker)

	if db != nil && db.DB != nil {
		healthHandler.SetDatabase(http.HealthCheckFunc(db.DB.HealthCheck))
		healthHandler.RegisterCircuitBreaker("mongodb_cache_mirror", db.MirrorCircuitBreaker)
	}

	// A nil *LiveUpdates must not reach the handler as a non-nil interface.
	var liveReader http.LiveReader
	if services.Live != nil {
		liveReader = services.Live
		healthHandler.SetLiveStatus(services.Live.Status)
	}

	handler := http.NewHandler(services.Rosters, services.Proxy, liveReader, services.Store)

	routerCfg := http.RouterConfig{
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		SwaggerUser:    cfg.Server.SwaggerUser,
		SwaggerPass:    cfg.Server.SwaggerPass,
	}
	if cfg.Auth.Enabled {
		routerCfg.JWT = &middleware.JWTConfig{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Leeway:   cfg.Auth.Leeway,
		}
	}
	if routerCfg.RateLimit > 0 {
		routerCfg.Limiter = middleware.NewRateLimiter(routerCfg.RateLimit, routerCfg.RateWindow)
	}

	return &RouterComponents{
		Handler:       handler,
		HealthHandler: healthHandler,
		Config:        routerCfg,
	}
}
