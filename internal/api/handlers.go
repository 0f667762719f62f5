package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/internal/database"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports whether the database and, when configured, Redis
// are reachable.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"database": "ok"}
	status := http.StatusOK
	if err := database.HealthCheck(ctx, h.db); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// The limiter fails open, so Redis being down only degrades.
			checks["redis"] = err.Error()
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}

// Handlers groups everything mounted under /api/v1.
type Handlers struct {
	Auth      *AuthHandler
	Recipes   *RecipeHandler
	Dashboard *DashboardHandler
	Admin     *AdminHandler
	Health    *HealthHandler
	Metrics   http.Handler
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, h Handlers) {
	if h.Health != nil {
		router.GET("/health", h.Health.HealthCheck)
	}
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	v1 := router.Group("/api/v1")
	h.Auth.RegisterRoutes(v1)
	h.Recipes.RegisterRoutes(v1)
	h.Dashboard.RegisterRoutes(v1)
	h.Admin.RegisterRoutes(v1)
}
