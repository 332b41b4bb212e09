package middleware

import "github.com/gin-gonic/gin"

// securityHeaders are sent on every response, errors included.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "SAMEORIGIN",
	"X-XSS-Protection":       "1; mode=block",
}

// SecurityHeaders sets conservative browser hardening headers before the
// rest of the chain runs.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range securityHeaders {
			c.Header(k, v)
		}
		c.Next()
	}
}
