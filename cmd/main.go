// Package main is the entry point for the sunday-edge service.
//
// @title           Sunday Edge API
// @version         1.0.0
// @description     Caching edge for the NFL dashboard: team and roster data, live win
// @description     probabilities and an allow-listed third-party proxy, all served
// @description     through a TTL cache with stale fallback.
//
// @contact.name   API Support
// @contact.url    https://github.com/guttosm/sunday-edge
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Bearer JWT. Required on cache administration routes when AUTH_ENABLED is set.
//
// @tag.name        NFL
// @tag.description Team, roster and player reads
//
// @tag.name        Live
// @tag.description Live game probabilities
//
// @tag.name        Cache
// @tag.description Cache inspection and invalidation
//
// @tag.name        Proxy
// @tag.description Cached third-party API reads
//
// @tag.name        Health
// @tag.description Health check endpoints
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sunday-edge/config"
	_ "github.com/guttosm/sunday-edge/docs" // swagger docs
	"github.com/guttosm/sunday-edge/internal/app"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	application := app.InitializeApp(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	application.Start(ctx)

	server := app.NewServerWithTimeout(application.Router, cfg.Server.Port, cfg.Server.ShutdownTimeout)
	runErr := server.Run()

	cancel()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := application.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("Failed to release resources")
	}

	if runErr != nil {
		log.Fatal().Err(runErr).Msg("Server error")
	}
}
