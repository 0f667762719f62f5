package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/internal/middleware"
	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// serverError logs err against the request and answers with a generic 500.
func serverError(c *gin.Context, log *logger.Logger, msg string, err error) {
	requestctx.LoggerFrom(c.Request.Context(), log).Error(msg, "error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// recipeError maps service errors shared by the recipe endpoints.
func recipeError(c *gin.Context, log *logger.Logger, msg string, err error) {
	var input *service.InputError
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
	case errors.As(err, &input):
		c.JSON(http.StatusBadRequest, gin.H{"error": input.Error(), "field": input.Field})
	default:
		serverError(c, log, msg, err)
	}
}

func callerOrAbort(c *gin.Context) (requestctx.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return caller, ok
}

func recipeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid recipe id")
		return 0, false
	}
	return uint(id), true
}
