package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/sunday-edge/internal/domain/dto"
)

// DefaultTimeout bounds request processing.
const DefaultTimeout = 30 * time.Second

// Timeout puts a deadline on the request context. Handlers pass that context
// to upstream calls; when the deadline passed and the handler wrote nothing,
// a 504 is returned.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout,
				dto.NewError(dto.ErrCodeTimeout, "Request timeout").WithRequestID(GetRequestID(c)))
		}
	}
}
