// Package datasource is the REST client for the team and roster data service.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guttosm/sunday-edge/internal/domain/model"
	"github.com/guttosm/sunday-edge/internal/metrics"
)

const (
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
	userAgent        = "sunday-edge/1.0"
)

// ErrTeamIDRequired is returned when Roster is called without a team id.
var ErrTeamIDRequired = errors.New("team id is required")

// UpstreamError reports a non-2xx status or an unsuccessful response body.
type UpstreamError struct {
	Resource   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream %s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.Resource, e.StatusCode, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsUpstreamFailure classifies errors for the datasource circuit breaker.
// Client errors from the upstream do not count against it.
func IsUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Temporary()
	}
	return true
}

// Health is the upstream health document.
type Health struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// Client reads teams, rosters and players from the data service.
type Client interface {
	Teams(ctx context.Context) ([]model.Team, error)
	Roster(ctx context.Context, teamID string) (*model.Roster, error)
	SearchPlayers(ctx context.Context, query string) ([]model.Player, error)
	Health(ctx context.Context) (*Health, error)
}

type listEnvelope[T any] struct {
	Success bool   `json:"success"`
	Data    []T    `json:"data"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

type rosterEnvelope struct {
	Success bool           `json:"success"`
	Team    model.TeamRef  `json:"team"`
	Roster  []model.Player `json:"roster"`
	Count   int            `json:"count"`
	Error   string         `json:"error,omitempty"`
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Teams(ctx context.Context) ([]model.Team, error) {
	var env listEnvelope[model.Team]
	if err := c.get(ctx, "teams", "/api/nfl/teams", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &UpstreamError{Resource: "teams", Message: messageOr(env.Error, "unsuccessful response")}
	}
	if env.Data == nil {
		env.Data = []model.Team{}
	}
	return env.Data, nil
}

func (c *HTTPClient) Roster(ctx context.Context, teamID string) (*model.Roster, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, ErrTeamIDRequired
	}
	var env rosterEnvelope
	path := "/api/nfl/team/" + url.PathEscape(teamID) + "/roster"
	if err := c.get(ctx, "roster", path, nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &UpstreamError{Resource: "roster", Message: messageOr(env.Error, "unsuccessful response")}
	}
	if env.Team.ID == "" {
		env.Team.ID = teamID
	}
	players := env.Roster
	if players == nil {
		players = []model.Player{}
	}
	return &model.Roster{Team: env.Team, Players: players}, nil
}

func (c *HTTPClient) SearchPlayers(ctx context.Context, query string) ([]model.Player, error) {
	var env listEnvelope[model.Player]
	if err := c.get(ctx, "players", "/api/nfl/search/players", url.Values{"q": {query}}, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, &UpstreamError{Resource: "players", Message: messageOr(env.Error, "unsuccessful response")}
	}
	if env.Data == nil {
		env.Data = []model.Player{}
	}
	return env.Data, nil
}

func (c *HTTPClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "health", "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) get(ctx context.Context, resource, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveUpstreamFetch(resource, time.Since(start))
	if err != nil {
		return fmt.Errorf("fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", resource, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Resource: resource, StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error body.
func errorMessage(body []byte, fallback string) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
