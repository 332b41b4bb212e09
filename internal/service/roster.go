package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/guttosm/sunday-edge/internal/datasource"
	"github.com/guttosm/sunday-edge/internal/domain/model"
)

// ErrEmptyQuery is returned when a player search has no query.
var ErrEmptyQuery = errors.New("search query is required")

const (
	TagTeams   = "teams"
	TagRosters = "rosters"
	TagPlayers = "players"
)

// RosterTTLs sets the freshness window per resource.
type RosterTTLs struct {
	Teams   time.Duration
	Rosters time.Duration
	Players time.Duration
}

// DefaultRosterTTLs returns the standard TTLs.
func DefaultRosterTTLs() RosterTTLs {
	return RosterTTLs{
		Teams:   5 * time.Minute,
		Rosters: 10 * time.Minute,
		Players: time.Minute,
	}
}

// RosterService provides cache-first reads of NFL reference data.
type RosterService interface {
	Teams(ctx context.Context, refresh bool) ([]model.Team, Outcome, error)
	Roster(ctx context.Context, teamID string, refresh bool) (*model.Roster, Outcome, error)
	SearchPlayers(ctx context.Context, query string, refresh bool) ([]model.Player, Outcome, error)
	InvalidateTeam(ctx context.Context, teamID string) int
}

// RosterServiceImpl implements RosterService.
type RosterServiceImpl struct {
	client  datasource.Client
	fetcher *Fetcher
	ttl     RosterTTLs
}

// NewRosterService creates a new roster service.
func NewRosterService(client datasource.Client, fetcher *Fetcher, ttl RosterTTLs) RosterService {
	def := DefaultRosterTTLs()
	if ttl.Teams <= 0 {
		ttl.Teams = def.Teams
	}
	if ttl.Rosters <= 0 {
		ttl.Rosters = def.Rosters
	}
	if ttl.Players <= 0 {
		ttl.Players = def.Players
	}
	return &RosterServiceImpl{
		client:  client,
		fetcher: fetcher,
		ttl:     ttl,
	}
}

// TeamsKey is the cache key for the team list.
func TeamsKey() string { return "nfl:teams" }

// RosterKey is the cache key for a team roster.
func RosterKey(teamID string) string { return "nfl:roster:" + teamID }

// PlayerSearchKey is the cache key for a normalized player search.
func PlayerSearchKey(query string) string { return "nfl:players:" + query }

// TeamTag tags every entry that belongs to teamID.
func TeamTag(teamID string) string { return "team:" + teamID }

func (s *RosterServiceImpl) Teams(ctx context.Context, refresh bool) ([]model.Team, Outcome, error) {
	return Call(ctx, s.fetcher, TeamsKey(), s.client.Teams, CallOptions{
		Resource:     "teams",
		TTL:          s.ttl.Teams,
		Persistent:   true,
		Tags:         []string{TagTeams},
		ForceRefresh: refresh,
	})
}

func (s *RosterServiceImpl) Roster(ctx context.Context, teamID string, refresh bool) (*model.Roster, Outcome, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, OutcomeFailed, datasource.ErrTeamIDRequired
	}
	return Call(ctx, s.fetcher, RosterKey(teamID), func(ctx context.Context) (*model.Roster, error) {
		return s.client.Roster(ctx, teamID)
	}, CallOptions{
		Resource:     "roster",
		TTL:          s.ttl.Rosters,
		Persistent:   true,
		Tags:         []string{TagRosters, TeamTag(teamID)},
		ForceRefresh: refresh,
	})
}

func (s *RosterServiceImpl) SearchPlayers(ctx context.Context, query string, refresh bool) ([]model.Player, Outcome, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, OutcomeFailed, ErrEmptyQuery
	}
	return Call(ctx, s.fetcher, PlayerSearchKey(query), func(ctx context.Context) ([]model.Player, error) {
		return s.client.SearchPlayers(ctx, query)
	}, CallOptions{
		Resource:     "players",
		TTL:          s.ttl.Players,
		Tags:         []string{TagPlayers},
		ForceRefresh: refresh,
	})
}

// InvalidateTeam drops every cached entry tagged for teamID.
func (s *RosterServiceImpl) InvalidateTeam(ctx context.Context, teamID string) int {
	return s.fetcher.Store().ClearByTags(ctx, TeamTag(teamID))
}
