package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/api"
	"github.com/pageza/cookistry/backend/internal/finder"
	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/metrics"
	"github.com/pageza/cookistry/backend/internal/middleware"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

// Deps are the long-lived resources the router wires handlers from. Redis
// and Media are optional.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Media   service.MediaStore
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// SetupRouter configures the application routes
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	router := gin.New()

	authService := service.NewAuthService(d.DB, cfg.Auth, d.Logger)

	router.Use(middleware.RequestLogger(d.Logger, d.Metrics))
	router.Use(middleware.ErrorHandler(d.Logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.Authenticate(authService, cfg.Auth.CookieName))

	store := recipestore.NewGormStore(d.DB)
	recipeService := service.NewRecipeService(store, d.Media, d.Logger)
	favoriteService := service.NewFavoriteService(d.DB, store)
	moderationService := service.NewModerationService(store, d.Logger)

	recipeFinder := finder.New(store, d.Logger,
		finder.WithPageSize(cfg.Finder.PageSize),
		finder.WithMetrics(d.Metrics),
	)
	bulkImporter := importer.New(store, d.Logger,
		importer.WithMaxBytes(cfg.Import.MaxBytes),
		importer.WithMetrics(d.Metrics),
	)

	loginLimiter := middleware.NewLoginRateLimiter(d.Redis, cfg.RateLimit)
	importLimiter := middleware.NewImportRateLimiter(d.Redis, cfg.RateLimit)

	api.RegisterRoutes(router, api.Handlers{
		Auth:      api.NewAuthHandler(authService, loginLimiter, cfg.Auth, d.Logger),
		Recipes:   api.NewRecipeHandler(recipeService, favoriteService, recipeFinder, d.Logger),
		Dashboard: api.NewDashboardHandler(recipeService, favoriteService, d.Logger),
		Admin:     api.NewAdminHandler(bulkImporter, moderationService, importLimiter, cfg.Import.ReportedErrors, d.Logger),
		Health:    api.NewHealthHandler(d.DB, d.Redis),
		Metrics:   d.Metrics.Handler(),
	})

	return router
}
