// Package dto defines the request and response envelopes of the HTTP API.
package dto

import "strings"

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message for ValidationError.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

var (
	// ErrQueryRequired is returned when q is missing or blank.
	ErrQueryRequired = &ValidationError{Field: "q", Message: "must not be empty"}
	// ErrTagsRequired is returned when tags is missing or blank.
	ErrTagsRequired = &ValidationError{Field: "tags", Message: "at least one tag is required"}
	// ErrURLRequired is returned when url is missing.
	ErrURLRequired = &ValidationError{Field: "url", Message: "must not be empty"}
)

// FetchQuery holds the query parameters shared by cached read endpoints.
type FetchQuery struct {
	// Refresh skips the fresh cache entry and goes upstream.
	Refresh bool `form:"refresh" example:"false"`
}

// SearchPlayersRequest is the query of GET /api/nfl/search/players.
type SearchPlayersRequest struct {
	FetchQuery
	Query string `form:"q" example:"mahomes"`
}

// Validate rejects blank queries.
func (r *SearchPlayersRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrQueryRequired
	}
	return nil
}

// InvalidateCacheRequest is the query of DELETE /api/cache.
type InvalidateCacheRequest struct {
	// Tags is a comma separated tag list.
	Tags string `form:"tags" example:"rosters,team:12"`
}

// TagList splits Tags, dropping blanks.
func (r *InvalidateCacheRequest) TagList() []string {
	var tags []string
	for _, t := range strings.Split(r.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Validate requires at least one tag.
func (r *InvalidateCacheRequest) Validate() error {
	if len(r.TagList()) == 0 {
		return ErrTagsRequired
	}
	return nil
}

// ProxyRequest is the query of GET /proxy.
type ProxyRequest struct {
	FetchQuery
	URL string `form:"url" example:"https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"`
}

// Validate requires a target url.
func (r *ProxyRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrURLRequired
	}
	return nil
}
