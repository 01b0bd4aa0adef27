package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"madeproof-backend/internal/shared/metrics"
	"madeproof-backend/internal/shared/server/respond"
	"madeproof-backend/internal/shared/telemetry"
)

// Recovery recovers from panics and returns a standardized error response. Pipeline
// buffers are released by their own deferred cleanup before the panic reaches here.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				metrics.IncPanicsRecovered()
				telemetry.Error("panic", map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				c.Header("Cache-Control", "no-store")
				respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
				c.Abort()
			}
		}()
		c.Next()
	}
}
