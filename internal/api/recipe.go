package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/internal/finder"
	"github.com/pageza/cookistry/backend/internal/media"
	"github.com/pageza/cookistry/backend/internal/middleware"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/internal/types"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

// RecipeFinder is the read side used by the public recipe pages.
type RecipeFinder interface {
	Search(ctx context.Context, q finder.Query) finder.Page
	MatchIngredients(ctx context.Context, ingredients []string) []finder.Match
	Featured(ctx context.Context, limit int) []finder.Summary
}

type RecipeHandler struct {
	recipes   service.IRecipeService
	favorites service.IFavoriteService
	finder    RecipeFinder
	log       *logger.Logger
}

func NewRecipeHandler(recipes service.IRecipeService, favorites service.IFavoriteService, f RecipeFinder, log *logger.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, favorites: favorites, finder: f, log: log.WithComponent("recipes-api")}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.Search)
		recipes.GET("/featured", h.Featured)
		recipes.GET("/:slug", h.GetRecipe)
		recipes.POST("", middleware.RequireUser(), h.CreateRecipe)
		recipes.POST("/:slug/favorite", middleware.RequireUser(), h.Favorite)
		recipes.DELETE("/:slug/favorite", middleware.RequireUser(), h.Unfavorite)
	}
	router.GET("/kitchen-finder", h.KitchenFinder)
	router.GET("/categories", h.Categories)
}

// Search serves the all-recipes listing: ?search=&category=&difficulty=&sort=&page=
func (h *RecipeHandler) Search(c *gin.Context) {
	q := finder.ParseQuery(
		c.Query("search"),
		c.Query("category"),
		c.Query("difficulty"),
		c.Query("sort"),
		c.Query("page"),
	)
	c.JSON(http.StatusOK, h.finder.Search(c.Request.Context(), q))
}

func (h *RecipeHandler) Featured(c *gin.Context) {
	recipes := h.finder.Featured(c.Request.Context(), finder.DefaultFeaturedLimit)
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// KitchenFinder matches recipes against a comma-separated ingredient list.
func (h *RecipeHandler) KitchenFinder(c *gin.Context) {
	ingredients := finder.ParseIngredients(c.Query("ingredients"))
	matches := h.finder.MatchIngredients(c.Request.Context(), ingredients)
	c.JSON(http.StatusOK, gin.H{
		"ingredients": ingredients,
		"recipes":     matches,
		"count":       len(matches),
	})
}

func (h *RecipeHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.Categories})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipe, err := h.recipes.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		recipeError(c, h.log, "Failed to load recipe", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var form types.CreateRecipeForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "Title, ingredients, instructions and category are required")
		return
	}

	in := service.RecipeInput{
		Title:        form.Title,
		Description:  form.Description,
		Ingredients:  form.Ingredients,
		Instructions: form.Instructions,
		Category:     form.Category,
		Difficulty:   form.Difficulty,
		PrepTime:     form.PrepTime,
		CookTime:     form.CookTime,
		Servings:     form.Servings,
		Tags:         form.Tags,
		VideoURL:     strings.TrimSpace(form.VideoURL),
	}

	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		badRequest(c, "Could not read image upload")
		return
	}
	defer closeImage()
	video, closeVideo, err := formUpload(c, "video_file")
	if err != nil {
		badRequest(c, "Could not read video upload")
		return
	}
	defer closeVideo()
	in.Image, in.VideoFile = image, video

	recipe, err := h.recipes.Create(c.Request.Context(), caller.UserID, in)
	if err != nil {
		recipeError(c, h.log, "Failed to create recipe", err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// formUpload opens an optional multipart file part. A missing part yields a
// nil upload.
func formUpload(c *gin.Context, field string) (*media.Upload, func(), error) {
	noop := func() {}
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	if header.Size == 0 {
		return nil, noop, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	return &media.Upload{Filename: header.Filename, Size: header.Size, Body: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}

func (h *RecipeHandler) Favorite(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	recipe, err := h.favorites.Add(c.Request.Context(), caller.UserID, c.Param("slug"))
	if err != nil {
		recipeError(c, h.log, "Failed to add favorite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": true, "recipe_id": recipe.ID})
}

func (h *RecipeHandler) Unfavorite(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	if err := h.favorites.Remove(c.Request.Context(), caller.UserID, c.Param("slug")); err != nil {
		recipeError(c, h.log, "Failed to remove favorite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": false})
}
