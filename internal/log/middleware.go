package log

import (
	"github.com/gin-gonic/gin"
)

// RequestIDHeader is set on responses by the trace middleware.
const RequestIDHeader = "X-Request-ID"

// Middleware stores a request-scoped logger in the request context. It must
// run after the trace middleware so the request ID is already known.
func Middleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scoped := logger
		if id := c.Writer.Header().Get(RequestIDHeader); id != "" {
			scoped = logger.With(FieldRequestID, id)
		}
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), scoped))
		c.Next()
	}
}
