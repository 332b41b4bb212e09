// Package app provides logger initialization.
package app

import (
	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/logger"
)

// InitializeLogger initializes the JSON logger from the server configuration.
func InitializeLogger(cfg config.ServerConfig) {
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	logger.Init(level, cfg.LogPretty)
}
