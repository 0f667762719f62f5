package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/middleware"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/internal/types"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

const (
	importField           = "csv_file"
	defaultReportedErrors = 100
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// BatchImporter loads an uploaded CSV batch into the recipe store.
type BatchImporter interface {
	ImportUpload(ctx context.Context, filename string, size int64, r io.Reader) (*importer.Report, error)
}

// AdminHandler serves the moderation panel and the bulk importer.
type AdminHandler struct {
	importer       BatchImporter
	moderation     service.IModerationService
	limiter        *middleware.RateLimiter
	reportedErrors int
	log            *logger.Logger
}

func NewAdminHandler(im BatchImporter, moderation service.IModerationService, limiter *middleware.RateLimiter, reportedErrors int, log *logger.Logger) *AdminHandler {
	if reportedErrors <= 0 {
		reportedErrors = defaultReportedErrors
	}
	return &AdminHandler{
		importer:       im,
		moderation:     moderation,
		limiter:        limiter,
		reportedErrors: reportedErrors,
		log:            log.WithComponent("admin-api"),
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin", middleware.RequireAdmin())
	{
		admin.POST("/import", h.limiter.Middleware(middleware.ByCaller), h.Import)
		admin.GET("/recipes", h.ListRecipes)
		admin.GET("/recipes/export", h.Export)
		admin.PATCH("/recipes/:id/status", h.SetStatus)
		admin.PATCH("/recipes/:id/featured", h.SetFeatured)
	}
}

// Import runs one CSV batch. Batch-level failures answer with
// {"success": false, "error": ...}; row problems are listed in the report.
func (h *AdminHandler) Import(c *gin.Context) {
	header, err := c.FormFile(importField)
	if err != nil {
		c.JSON(http.StatusBadRequest, importer.Failure{Error: "Please choose a CSV file to upload."})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, importer.NewFailure(importer.ErrUnreadable))
		return
	}
	defer f.Close()

	report, err := h.importer.ImportUpload(c.Request.Context(), header.Filename, header.Size, f)
	if err != nil {
		c.JSON(importStatus(err), importer.NewFailure(err))
		return
	}
	c.JSON(http.StatusOK, report.Capped(h.reportedErrors))
}

func importStatus(err error) int {
	switch {
	case errors.Is(err, importer.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrBatchAborted):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

// ListRecipes pages through recipes in any status: ?status=&page=&page_size=
func (h *AdminHandler) ListRecipes(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if pageSize > 100 {
		pageSize = 100
	}

	list, err := h.moderation.List(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			badRequest(c, "Invalid status filter")
			return
		}
		serverError(c, h.log, "Failed to list recipes", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) SetStatus(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	var req types.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Status must be one of published, draft, archived")
		return
	}

	recipe, err := h.moderation.SetStatus(c.Request.Context(), id, models.Status(req.Status))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			badRequest(c, "Status must be one of published, draft, archived")
			return
		}
		recipeError(c, h.log, "Failed to update status", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *AdminHandler) SetFeatured(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	var req types.UpdateFeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Featured must be true or false")
		return
	}

	recipe, err := h.moderation.SetFeatured(c.Request.Context(), id, *req.Featured)
	if err != nil {
		recipeError(c, h.log, "Failed to update featured flag", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Export returns every recipe as an XLSX workbook whose columns the
// importer accepts once saved as CSV.
func (h *AdminHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	count, err := h.moderation.Export(c.Request.Context(), &buf)
	if err != nil {
		serverError(c, h.log, "Failed to export recipes", err)
		return
	}

	filename := fmt.Sprintf("recipes-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Recipe-Count", strconv.Itoa(count))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
