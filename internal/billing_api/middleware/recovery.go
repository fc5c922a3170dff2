package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery catches handler panics, logs them with the stack trace and the
// request's correlation ID, and answers 500. The correlation ID is echoed in
// the error body so a support ticket can be matched to the panic log line.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				correlationID := GetCorrelationID(c)

				attrs := []any{
					"error", r,
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				}
				if correlationID != "" {
					attrs = append(attrs, "correlation_id", correlationID)
				}
				logger.Error("Panic recovered", attrs...)

				response := gin.H{
					"error": gin.H{
						"code":    "INTERNAL_SERVER_ERROR",
						"message": "An internal server error occurred",
					},
				}
				if correlationID != "" {
					response["correlation_id"] = correlationID
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, response)
			}
		}()

		c.Next()
	}
}
