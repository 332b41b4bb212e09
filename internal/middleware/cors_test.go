package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"default origin", nil, http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"preflight", nil, http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"configured origin", []string{"https://sunday-edge.app"}, http.MethodGet, "https://sunday-edge.app", http.StatusOK, "https://sunday-edge.app"},
		{"foreign origin", nil, http.MethodGet, "https://evil.test", http.StatusForbidden, ""},
		{"wildcard", []string{"*"}, http.MethodGet, "https://evil.test", http.StatusOK, "*"},
		{"no origin", nil, http.MethodGet, "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.origins))
			r.GET("/api/nfl/teams", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/api/nfl/teams", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			w := serve(r, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
