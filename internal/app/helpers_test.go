package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/sunday-edge/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const teamsBody = `{"success":true,"data":[{"id":"12","name":"Kansas City Chiefs","abbreviation":"KC"}],"count":1}`

func newUpstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/api/nfl/teams" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(teamsBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testConfig(upstreamURL string) config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			RateLimit:      100,
			RateWindow:     time.Minute,
			RequestTimeout: 5 * time.Second,
			LogLevel:       "error",
		},
		Cache: config.CacheConfig{
			MaxEntries: 50,
			DefaultTTL: time.Minute,
			TeamsTTL:   time.Minute,
		},
		Upstream: config.UpstreamConfig{
			BaseURL:                        upstreamURL,
			Timeout:                        time.Second,
			CircuitBreakerFailureThreshold: 5,
			CircuitBreakerSuccessThreshold: 1,
			CircuitBreakerTimeout:          time.Minute,
		},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a := InitializeApp(cfg)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func serve(a *App, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}
