package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader is the HTTP header carrying the request's trace ID.
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key the trace ID is stored under.
	CorrelationIDKey = "correlation_id"
)

// CorrelationID assigns every request a correlation ID and echoes it back in
// the response header. The ID follows the request through the billing
// services into outbox events, so the invoicing worker's logs can be joined
// with the API call that triggered them. An inbound header is honored only
// when it parses as a UUID; anything else is replaced.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if _, err := uuid.Parse(correlationID); err != nil {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" outside the
// middleware chain.
func GetCorrelationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationIDKey); exists {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}
