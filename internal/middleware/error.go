package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler turns panics and errors attached with c.Error into JSON error
// responses. Handlers that already wrote a body are left alone.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				requestctx.LoggerFrom(c.Request.Context(), log).Error("Panic while serving request",
					"panic", rec,
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last()
		requestctx.LoggerFrom(c.Request.Context(), log).Error("Request failed", "error", err.Err, "path", c.Request.URL.Path)

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		message := err.Error()
		if status >= http.StatusInternalServerError {
			message = http.StatusText(status)
		}
		c.JSON(status, ErrorResponse{Error: message})
	}
}
