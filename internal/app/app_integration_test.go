//go:build integration

package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/sunday-edge/config"
	"github.com/guttosm/sunday-edge/internal/testutil"
)

func mongoConfig(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{
		URI:                            testutil.GetSharedContainerURI(),
		DatabaseName:                   testutil.SanitizeDBName(t.Name()),
		Enabled:                        true,
		CircuitBreakerFailureThreshold: 5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,
	}
}

func TestInitializeApp_Integration(t *testing.T) {
	upstream, _ := newUpstream(t)
	cfg := testConfig(upstream.URL)
	cfg.Database = mongoConfig(t)

	a := newTestApp(t, cfg)
	require.NotNil(t, a.Database.DB)

	w := serve(a, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)

	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/readyz").Code)
}

func TestInitializeApp_TeamsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	upstream, hits := newUpstream(t)
	cfg := testConfig(upstream.URL)
	cfg.Database = mongoConfig(t)

	first := InitializeApp(cfg)
	require.Equal(t, http.StatusOK, serve(first, http.MethodGet, "/api/nfl/teams").Code)
	require.NoError(t, first.Close(ctx))

	second := newTestApp(t, cfg)

	w := serve(second, http.MethodGet, "/api/nfl/teams")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hit", w.Header().Get("X-Cache"), "promoted from the MongoDB mirror")
	assert.Equal(t, int32(1), hits.Load())
}
