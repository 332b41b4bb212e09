// Package app provides application initialization and dependency injection.
package app

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/http"
)

// App is the wired application.
type App struct {
	Router   *gin.Engine
	Services *ServiceComponents
	Database *DatabaseComponents
	Routes   *RouterComponents
}

// InitializeApp creates and wires all application dependencies.
// This is the main orchestration function that initializes all components.
func InitializeApp(cfg config.Config) *App {
	// Initialize logger first (needed by other components)
	InitializeLogger(cfg.Server)

	// The cache mirror must exist before the store that writes through it
	dbComponents := InitializeDatabase(cfg.Database, cfg.Cache)

	serviceComponents := InitializeServices(cfg, dbComponents.Mirror)

	routerComponents := InitializeRouter(serviceComponents, dbComponents, cfg)

	return &App{
		Router:   http.NewRouter(routerComponents.Handler, routerComponents.HealthHandler, routerComponents.Config),
		Services: serviceComponents,
		Database: dbComponents,
		Routes:   routerComponents,
	}
}

// Start connects background producers. ctx bounds the live channel.
func (a *App) Start(ctx context.Context) {
	if a.Services.Live != nil {
		a.Services.Live.Start(ctx)
		log.Info().Msg("Live updates started")
	}
}

// Close releases everything Start and InitializeApp acquired.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Services.Live != nil {
		errs = append(errs, a.Services.Live.Stop())
	}
	if l := a.Routes.Config.Limiter; l != nil {
		l.Stop()
	}
	a.Services.Store.Stop()
	errs = append(errs, a.Database.Close(ctx))
	return errors.Join(errs...)
}
