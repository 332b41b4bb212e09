package http

import (
	"github.com/gin-gonic/gin"

	"github.com/guttosm/sunday-edge/internal/middleware"
)

// registerAPIRoutes registers the /api group. Reads are public; cache
// administration requires a bearer token when JWT is configured.
func registerAPIRoutes(api *gin.RouterGroup, h *Handler, cfg *RouterConfig) {
	nfl := api.Group("/nfl")
	nfl.GET("/teams", h.GetTeams)
	nfl.GET("/team/:id/roster", h.GetRoster)
	nfl.GET("/search/players", h.SearchPlayers)

	if h.live != nil {
		api.GET("/games/:id/probabilities", h.GetGameProbabilities)
		api.GET("/live/status", h.GetLiveStatus)
	}

	admin := api.Group("")
	if cfg.JWT != nil {
		admin.Use(middleware.JWTAuth(*cfg.JWT))
	}
	admin.DELETE("/nfl/team/:id/cache", h.InvalidateTeam)

	if h.cache != nil {
		api.GET("/cache/stats", h.GetCacheStats)
		admin.DELETE("/cache", h.InvalidateCache)
		admin.DELETE("/cache/*key", h.DeleteCacheEntry)
	}
}
