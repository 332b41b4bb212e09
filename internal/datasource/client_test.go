package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
	"github.com/guttosm/sunday-edge/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestHTTPClient_Teams(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		expected   []model.Team
		wantStatus int
		wantErr    bool
	}{
		{
			name:    "success",
			handler: respond(http.StatusOK, `{"success":true,"data":[{"id":"12","name":"Kansas City Chiefs","abbreviation":"KC"}],"count":1}`),
			expected: []model.Team{
				{ID: "12", Name: "Kansas City Chiefs", Abbreviation: "KC"},
			},
		},
		{
			name:     "empty list",
			handler:  respond(http.StatusOK, `{"success":true,"count":0}`),
			expected: []model.Team{},
		},
		{
			name:    "unsuccessful body",
			handler: respond(http.StatusOK, `{"success":false,"error":"database offline"}`),
			wantErr: true,
		},
		{
			name:       "server error",
			handler:    respond(http.StatusBadGateway, `{"error":"bad gateway"}`),
			wantStatus: http.StatusBadGateway,
			wantErr:    true,
		},
		{
			name:    "invalid json",
			handler: respond(http.StatusOK, `<html>`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, map[string]http.HandlerFunc{"/api/nfl/teams": tt.handler})
			client := NewHTTPClient(srv.URL+"/", time.Second)

			teams, err := client.Teams(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantStatus != 0 {
					var ue *UpstreamError
					require.ErrorAs(t, err, &ue)
					assert.Equal(t, tt.wantStatus, ue.StatusCode)
					assert.Equal(t, "bad gateway", ue.Message)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, teams)
		})
	}
}

func TestHTTPClient_Roster(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/api/nfl/team/12/roster": respond(http.StatusOK, `{"success":true,"team":"12","roster":[{"name":"Patrick Mahomes","position":"QB","team":"KC","experience_years":8}],"count":1}`),
		"/api/nfl/team/99/roster": respond(http.StatusNotFound, `{"success":false,"error":"Team not found"}`),
	})
	client := NewHTTPClient(srv.URL, time.Second)
	ctx := context.Background()

	roster, err := client.Roster(ctx, "12")
	require.NoError(t, err)
	assert.Equal(t, "12", roster.Team.ID)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "Patrick Mahomes", roster.Players[0].Name)
	assert.Equal(t, 8, roster.Players[0].ExperienceYears)

	_, err = client.Roster(ctx, "99")
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.StatusCode)
	assert.Equal(t, "Team not found", ue.Message)
	assert.False(t, ue.Temporary())

	_, err = client.Roster(ctx, "  ")
	assert.ErrorIs(t, err, ErrTeamIDRequired)
}

func TestHTTPClient_SearchPlayers(t *testing.T) {
	queries := make(chan string, 1)
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/api/nfl/search/players": func(w http.ResponseWriter, r *http.Request) {
			queries <- r.URL.Query().Get("q")
			respond(http.StatusOK, `{"success":true,"data":[{"name":"Josh Allen","position":"QB","team":"BUF","experience_years":7}],"count":1}`)(w, r)
		},
	})
	client := NewHTTPClient(srv.URL, time.Second)

	players, err := client.SearchPlayers(context.Background(), "josh allen")
	require.NoError(t, err)
	assert.Equal(t, "josh allen", <-queries)
	assert.Equal(t, []model.Player{{Name: "Josh Allen", Position: "QB", Team: "BUF", ExperienceYears: 7}}, players)
}

func TestHTTPClient_Health(t *testing.T) {
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/health": respond(http.StatusOK, `{"status":"healthy","database":"connected","timestamp":"2025-01-28T10:00:00Z"}`),
	})
	client := NewHTTPClient(srv.URL, time.Second)

	h, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Health{Status: "healthy", Database: "connected", Timestamp: "2025-01-28T10:00:00Z"}, h)
}

func TestHTTPClient_Unreachable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.Teams(context.Background())
	require.Error(t, err)
	assert.True(t, IsUpstreamFailure(err))
}

func TestIsUpstreamFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"network", errors.New("connection reset"), true},
		{"server error", &UpstreamError{Resource: "teams", StatusCode: 503}, true},
		{"rate limited", &UpstreamError{Resource: "teams", StatusCode: 429}, true},
		{"not found", &UpstreamError{Resource: "roster", StatusCode: 404}, false},
		{"unsuccessful body", &UpstreamError{Resource: "teams", Message: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUpstreamFailure(tt.err))
		})
	}
}

func TestClientWithCircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := newUpstream(t, map[string]http.HandlerFunc{
		"/api/nfl/teams": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			respond(http.StatusServiceUnavailable, `{"error":"down"}`)(w, r)
		},
		"/api/nfl/team/1/roster": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			respond(http.StatusNotFound, `{"error":"missing"}`)(w, r)
		},
	})

	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "datasource",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		IsFailure:        IsUpstreamFailure,
	})
	client := NewClientWithCircuitBreaker(NewHTTPClient(srv.URL, time.Second), cb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = client.Roster(ctx, "1")
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.State(), "client errors do not trip the breaker")

	_, _ = client.Teams(ctx)
	_, _ = client.Teams(ctx)
	assert.True(t, client.GetCircuitBreaker().IsOpen())

	before := calls.Load()
	_, err := client.SearchPlayers(ctx, "x")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, before, calls.Load(), "open circuit fails fast")
}
