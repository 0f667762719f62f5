package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/cookistry/backend/internal/metrics"
	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id, attaches a request-scoped
// logger to its context, and records access logs and HTTP metrics.
func RequestLogger(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		reqLog := log.With("request_id", id)
		ctx := requestctx.WithRequestID(c.Request.Context(), id)
		ctx = requestctx.WithLogger(ctx, reqLog)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.ObserveRequest(c.Request.Method, c.FullPath(), status, elapsed)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed.String(),
			"client_ip", c.ClientIP(),
		}
		if caller, ok := CallerFrom(c); ok {
			fields = append(fields, "caller", caller.String())
		}
		switch {
		case status >= 500:
			reqLog.Error("Request completed", fields...)
		case status >= 400:
			reqLog.Warn("Request completed", fields...)
		default:
			reqLog.Info("Request completed", fields...)
		}
	}
}
