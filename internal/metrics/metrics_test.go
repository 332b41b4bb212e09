package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(PrometheusMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/error", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "error")
	})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "records metrics for successful request", path: "/test", expectedStatus: http.StatusOK},
		{name: "records metrics for error request", path: "/error", expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	assert.GreaterOrEqual(t, testutil.ToFloat64(HTTPRequestTotal.WithLabelValues(http.MethodGet, "/test", "200")), 1.0)
}

func TestRecordCacheOperation(t *testing.T) {
	before := testutil.ToFloat64(CacheOperationsTotal.WithLabelValues("get", "stale"))
	RecordCacheOperation("get", "stale")
	assert.Equal(t, before+1, testutil.ToFloat64(CacheOperationsTotal.WithLabelValues("get", "stale")))
}

func TestUpdateCacheMetrics(t *testing.T) {
	UpdateCacheMetrics(75, 100)

	assert.Equal(t, 75.0, testutil.ToFloat64(CacheSize))
	assert.Equal(t, 100.0, testutil.ToFloat64(CacheCapacity))
}

func TestRecordUpstreamFetch(t *testing.T) {
	before := testutil.ToFloat64(UpstreamFetchTotal.WithLabelValues("teams", "stale_fallback"))
	RecordUpstreamFetch("teams", "stale_fallback")
	ObserveUpstreamFetch("teams", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamFetchTotal.WithLabelValues("teams", "stale_fallback")))
}

func TestLiveMetrics(t *testing.T) {
	SetLiveState(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(LiveState))

	before := testutil.ToFloat64(LiveReconnectsTotal.WithLabelValues("gave_up"))
	RecordLiveReconnect("gave_up")
	assert.Equal(t, before+1, testutil.ToFloat64(LiveReconnectsTotal.WithLabelValues("gave_up")))

	RecordLiveMessage("probability-update", "dispatched")
	RecordMirrorOperation("save", "quota_exceeded")
}
