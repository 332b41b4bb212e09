package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompression(t *testing.T) {
	payload := strings.Repeat(`{"name":"Kansas City Chiefs"},`, 100)
	r := gin.New()
	r.Use(Compression())
	r.GET("/api/nfl/teams", func(c *gin.Context) { c.String(http.StatusOK, payload) })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, payload) })

	tests := []struct {
		name     string
		path     string
		encoding string
		wantGzip bool
	}{
		{"gzip accepted", "/api/nfl/teams", "gzip", true},
		{"gzip not accepted", "/api/nfl/teams", "", false},
		{"metrics excluded", "/metrics", "gzip", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.encoding != "" {
				req.Header.Set("Accept-Encoding", tt.encoding)
			}
			w := serve(r, req)
			require.Equal(t, http.StatusOK, w.Code)

			if !tt.wantGzip {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				assert.Equal(t, payload, w.Body.String())
				return
			}
			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			zr, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			body, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Equal(t, payload, string(body))
		})
	}
}
