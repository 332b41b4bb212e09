// Package http exposes the cached NFL data, live probabilities and cache
// administration over a gin router.
package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/sunday-edge/internal/cache"
	"github.com/guttosm/sunday-edge/internal/domain/dto"
	"github.com/guttosm/sunday-edge/internal/domain/model"
	"github.com/guttosm/sunday-edge/internal/live"
	"github.com/guttosm/sunday-edge/internal/service"
)

// LiveReader is the read side of the live write-through.
type LiveReader interface {
	Latest(ctx context.Context, gameID string) (model.GameProbability, service.Outcome, bool)
	Status() live.Status
}

// CacheAdmin is the administrative surface of the cache store.
type CacheAdmin interface {
	Stats(ctx context.Context) cache.Stats
	ClearByTags(ctx context.Context, tags ...string) int
	Delete(ctx context.Context, key string) bool
}

// Handler provides the API handlers.
type Handler struct {
	rosters service.RosterService
	proxy   service.ProxyService
	live    LiveReader
	cache   CacheAdmin
}

// NewHandler creates a new Handler. proxy and live may be nil, in which case
// their routes are not registered.
func NewHandler(rosters service.RosterService, proxy service.ProxyService, liveReader LiveReader, store CacheAdmin) *Handler {
	return &Handler{rosters: rosters, proxy: proxy, live: liveReader, cache: store}
}

// GetTeams handles GET /api/nfl/teams.
//
// @Summary      List NFL teams
// @Description  Cache-first list of all teams. X-Cache reports hit, miss or stale.
// @Tags         NFL
// @Produce      json
// @Param        refresh query bool false "Bypass a fresh cache entry"
// @Success      200 {object} dto.SuccessResponse{data=[]model.Team}
// @Failure      502 {object} dto.ErrorResponse "Upstream failed and nothing is cached"
// @Failure      503 {object} dto.ErrorResponse "Upstream circuit open and nothing is cached"
// @Router       /api/nfl/teams [get]
func (h *Handler) GetTeams(c *gin.Context) {
	b := NewResponseBuilder(c)
	q, err := BindQuery[dto.FetchQuery](c)
	if err != nil {
		b.ValidationError(err)
		return
	}

	teams, outcome, err := h.rosters.Teams(c.Request.Context(), q.Refresh)
	if err != nil {
		b.WithOutcome(outcome).ServiceError(err)
		return
	}
	b.WithOutcome(outcome).SuccessOK(teams)
}

// GetRoster handles GET /api/nfl/team/{id}/roster.
//
// @Summary      Team roster
// @Tags         NFL
// @Produce      json
// @Param        id      path  string true  "Team id"
// @Param        refresh query bool   false "Bypass a fresh cache entry"
// @Success      200 {object} dto.SuccessResponse{data=model.Roster}
// @Failure      404 {object} dto.ErrorResponse "Unknown team"
// @Failure      502 {object} dto.ErrorResponse "Upstream failed and nothing is cached"
// @Router       /api/nfl/team/{id}/roster [get]
func (h *Handler) GetRoster(c *gin.Context) {
	b := NewResponseBuilder(c)
	q, err := BindQuery[dto.FetchQuery](c)
	if err != nil {
		b.ValidationError(err)
		return
	}

	roster, outcome, err := h.rosters.Roster(c.Request.Context(), c.Param("id"), q.Refresh)
	if err != nil {
		b.WithOutcome(outcome).ServiceError(err)
		return
	}
	b.WithOutcome(outcome).SuccessOK(roster)
}

// SearchPlayers handles GET /api/nfl/search/players.
//
// @Summary      Search players
// @Tags         NFL
// @Produce      json
// @Param        q       query string true  "Name fragment"
// @Param        refresh query bool   false "Bypass a fresh cache entry"
// @Success      200 {object} dto.SuccessResponse{data=[]model.Player}
// @Failure      400 {object} dto.ErrorResponse "Missing query"
// @Router       /api/nfl/search/players [get]
func (h *Handler) SearchPlayers(c *gin.Context) {
	b := NewResponseBuilder(c)
	q, err := BindQuery[dto.SearchPlayersRequest](c)
	if err != nil {
		b.ValidationError(err)
		return
	}

	players, outcome, err := h.rosters.SearchPlayers(c.Request.Context(), q.Query, q.Refresh)
	if err != nil {
		b.WithOutcome(outcome).ServiceError(err)
		return
	}
	b.WithOutcome(outcome).SuccessOK(players)
}

// GetGameProbabilities handles GET /api/games/{id}/probabilities.
//
// @Summary      Latest live win probabilities
// @Description  Most recent probability update received over the live channel.
// @Tags         Live
// @Produce      json
// @Param        id path string true "Game id"
// @Success      200 {object} dto.SuccessResponse{data=model.GameProbability}
// @Failure      404 {object} dto.ErrorResponse "No update received for this game"
// @Router       /api/games/{id}/probabilities [get]
func (h *Handler) GetGameProbabilities(c *gin.Context) {
	b := NewResponseBuilder(c)
	p, outcome, ok := h.live.Latest(c.Request.Context(), c.Param("id"))
	if !ok {
		b.Error(http.StatusNotFound, "No live update for game "+c.Param("id"), nil)
		return
	}
	b.WithOutcome(outcome).SuccessOK(p)
}

// GetLiveStatus handles GET /api/live/status.
//
// @Summary      Live channel status
// @Tags         Live
// @Produce      json
// @Success      200 {object} dto.SuccessResponse{data=live.Status}
// @Router       /api/live/status [get]
func (h *Handler) GetLiveStatus(c *gin.Context) {
	NewResponseBuilder(c).SuccessOK(h.live.Status())
}

// GetCacheStats handles GET /api/cache/stats.
//
// @Summary      Cache statistics
// @Tags         Cache
// @Produce      json
// @Success      200 {object} dto.SuccessResponse{data=cache.Stats}
// @Router       /api/cache/stats [get]
func (h *Handler) GetCacheStats(c *gin.Context) {
	NewResponseBuilder(c).SuccessOK(h.cache.Stats(c.Request.Context()))
}

// InvalidateCache handles DELETE /api/cache.
//
// @Summary      Invalidate cache entries by tag
// @Description  Removes every entry, in memory and durable, carrying any of the tags.
// @Tags         Cache
// @Produce      json
// @Param        tags query string true "Comma separated tags"
// @Success      200 {object} dto.SuccessResponse{data=dto.CacheInvalidationResult}
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/cache [delete]
func (h *Handler) InvalidateCache(c *gin.Context) {
	b := NewResponseBuilder(c)
	req, err := BindQuery[dto.InvalidateCacheRequest](c)
	if err != nil {
		b.ValidationError(err)
		return
	}
	tags := req.TagList()
	removed := h.cache.ClearByTags(c.Request.Context(), tags...)
	b.SuccessOK(dto.CacheInvalidationResult{Tags: tags, Removed: removed})
}

// DeleteCacheEntry handles DELETE /api/cache/{key}.
//
// @Summary      Delete one cache entry
// @Tags         Cache
// @Produce      json
// @Param        key path string true "Cache key, e.g. nfl:roster:12"
// @Success      200 {object} dto.SuccessResponse{data=dto.CacheDeleteResult}
// @Failure      401 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/cache/{key} [delete]
func (h *Handler) DeleteCacheEntry(c *gin.Context) {
	b := NewResponseBuilder(c)
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		b.Error(http.StatusBadRequest, "key: must not be empty", nil)
		return
	}
	b.SuccessOK(dto.CacheDeleteResult{Key: key, Deleted: h.cache.Delete(c.Request.Context(), key)})
}

// InvalidateTeam handles DELETE /api/nfl/team/{id}/cache.
//
// @Summary      Invalidate cached data of one team
// @Tags         Cache
// @Produce      json
// @Param        id path string true "Team id"
// @Success      200 {object} dto.SuccessResponse{data=dto.CacheInvalidationResult}
// @Security     BearerAuth
// @Router       /api/nfl/team/{id}/cache [delete]
func (h *Handler) InvalidateTeam(c *gin.Context) {
	id := c.Param("id")
	removed := h.rosters.InvalidateTeam(c.Request.Context(), id)
	NewResponseBuilder(c).SuccessOK(dto.CacheInvalidationResult{Tags: []string{service.TeamTag(id)}, Removed: removed})
}

// Proxy handles GET /proxy.
//
// @Summary      Cached upstream proxy
// @Description  Fetches an allow-listed third-party URL, caching the body briefly so a failing upstream serves the last good copy.
// @Tags         Proxy
// @Produce      json
// @Param        url     query string true  "Absolute upstream URL"
// @Param        refresh query bool   false "Bypass a fresh cache entry"
// @Success      200 {string} string "Upstream body, verbatim"
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse "Host not allowed"
// @Failure      502 {object} dto.ErrorResponse
// @Router       /proxy [get]
func (h *Handler) Proxy(c *gin.Context) {
	b := NewResponseBuilder(c)
	req, err := BindQuery[dto.ProxyRequest](c)
	if err != nil {
		b.ValidationError(err)
		return
	}

	resp, outcome, err := h.proxy.Fetch(c.Request.Context(), req.URL, req.Refresh)
	if err != nil {
		b.WithOutcome(outcome).ServiceError(err)
		return
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.WithOutcome(outcome)
	c.Data(http.StatusOK, contentType, resp.Body)
}
