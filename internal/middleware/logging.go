package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"repo-sync-automation/pkg/log"
	"repo-sync-automation/pkg/response"
)

// HeaderRequestID carries a caller-chosen request id.
const HeaderRequestID = "X-Request-ID"

// RequestLogger stores a trace id in the request context and logs one line per request.
func (m Middleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := log.WithTraceID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, id)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= 500:
			m.l.Errorf(ctx, "http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, latency)
		case status >= 400:
			m.l.Warnf(ctx, "http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, latency)
		default:
			m.l.Debugf(ctx, "http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, latency)
		}
	}
}

// Recovery turns a handler panic into a generic 500.
func (m Middleware) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		m.l.Errorf(c.Request.Context(), "http: panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		response.InternalError(c, nil)
		c.Abort()
	})
}
