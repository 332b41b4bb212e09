package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/sunday-edge/internal/logger"
)

// RequestLogger returns a middleware that logs one structured line per request.
// The level follows the status code.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		l := logger.Logger()
		ev := l.WithLevel(logLevel(statusCode)).
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status_code", statusCode).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent())
		if userID := GetUserID(c); userID != "" {
			ev = ev.Str("user_id", userID)
		}
		if cache := c.Writer.Header().Get("X-Cache"); cache != "" {
			ev = ev.Str("cache", cache)
		}
		ev.Msg("HTTP request")
	}
}

func logLevel(statusCode int) zerolog.Level {
	switch {
	case statusCode >= 500:
		return zerolog.ErrorLevel
	case statusCode >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
