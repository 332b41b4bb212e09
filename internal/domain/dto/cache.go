package dto

// CacheInvalidationResult is returned by DELETE /api/cache.
// @Description Result of a tag invalidation
type CacheInvalidationResult struct {
	Tags    []string `json:"tags" example:"rosters,team:12"`
	Removed int      `json:"removed" example:"3"`
} // @name CacheInvalidationResult

// CacheDeleteResult is returned by DELETE /api/cache/{key}.
type CacheDeleteResult struct {
	Key     string `json:"key" example:"nfl:roster:12"`
	Deleted bool   `json:"deleted"`
} // @name CacheDeleteResult

// HealthStatus mirrors the health payload of the Team/Roster Data Service.
type HealthStatus struct {
	Status    string `json:"status" example:"ok"`
	Database  string `json:"database" example:"connected"`
	Timestamp string `json:"timestamp" example:"2025-01-28T10:00:00Z"`
} // @name HealthStatus
