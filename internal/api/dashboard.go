package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/internal/finder"
	"github.com/pageza/cookistry/backend/internal/middleware"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

// DashboardHandler handles the signed-in user's own pages
type DashboardHandler struct {
	recipes   service.IRecipeService
	favorites service.IFavoriteService
	log       *logger.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(recipes service.IRecipeService, favorites service.IFavoriteService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{recipes: recipes, favorites: favorites, log: log.WithComponent("dashboard-api")}
}

// RegisterRoutes registers the dashboard routes
func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	me := router.Group("/me", middleware.RequireUser())
	{
		me.GET("/dashboard", h.GetStats)
		me.GET("/recipes", h.MyRecipes)
		me.GET("/favorites", h.MyFavorites)
	}
}

// GetStats returns dashboard statistics for the current user
func (h *DashboardHandler) GetStats(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	stats, err := h.favorites.Stats(c.Request.Context(), caller.UserID)
	if err != nil {
		serverError(c, h.log, "Failed to load dashboard", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) MyRecipes(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	recipes, err := h.recipes.ListByAuthor(c.Request.Context(), caller.UserID)
	if err != nil {
		serverError(c, h.log, "Failed to load recipes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": summaries(recipes)})
}

func (h *DashboardHandler) MyFavorites(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	recipes, err := h.favorites.List(c.Request.Context(), caller.UserID)
	if err != nil {
		serverError(c, h.log, "Failed to load favorites", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": summaries(recipes)})
}

func summaries(recipes []models.Recipe) []finder.Summary {
	out := make([]finder.Summary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, finder.NewSummary(r, finder.SummaryLength))
	}
	return out
}
