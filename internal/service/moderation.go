package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

var ErrInvalidStatus = errors.New("invalid recipe status")

const exportSheet = "Recipes"

// RecipeList is one page of the admin recipe table.
type RecipeList struct {
	Recipes    []models.Recipe `json:"recipes"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// ModerationService backs the admin panel. Recipes are never deleted; they
// are archived or unpublished instead.
type ModerationService struct {
	store recipestore.Store
	log   *logger.Logger
}

func NewModerationService(store recipestore.Store, log *logger.Logger) *ModerationService {
	return &ModerationService{store: store, log: log.WithComponent("moderation")}
}

// List pages through recipes in any status. An empty status or "all" lists
// everything.
func (s *ModerationService) List(ctx context.Context, status string, page, pageSize int) (*RecipeList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	c := recipestore.Criteria{Sort: recipestore.ByNewest()}
	if status = strings.ToLower(strings.TrimSpace(status)); status != "" && status != "all" {
		st := models.Status(status)
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		c.Predicates = append(c.Predicates, recipestore.StatusIs(st))
	}

	total, err := s.store.Count(ctx, c)
	if err != nil {
		return nil, err
	}
	c.Limit = pageSize
	c.Offset = (page - 1) * pageSize
	recipes, err := s.store.Find(ctx, c)
	if err != nil {
		return nil, err
	}

	return &RecipeList{
		Recipes:    recipes,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

func (s *ModerationService) SetStatus(ctx context.Context, id uint, status models.Status) (*models.Recipe, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return nil, notFound(err)
	}
	s.audit(ctx, "Recipe status changed", "recipe_id", id, "status", string(status))
	return s.reload(ctx, id)
}

func (s *ModerationService) SetFeatured(ctx context.Context, id uint, featured bool) (*models.Recipe, error) {
	if err := s.store.SetFeatured(ctx, id, featured); err != nil {
		return nil, notFound(err)
	}
	s.audit(ctx, "Recipe featured flag changed", "recipe_id", id, "featured", featured)
	return s.reload(ctx, id)
}

func (s *ModerationService) reload(ctx context.Context, id uint) (*models.Recipe, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *ModerationService) audit(ctx context.Context, msg string, keysAndValues ...interface{}) {
	log := requestctx.LoggerFrom(ctx, s.log)
	if caller, ok := requestctx.CallerFrom(ctx); ok {
		log = log.With("caller", caller.String())
	}
	log.Info(msg, keysAndValues...)
}

func notFound(err error) error {
	if errors.Is(err, recipestore.ErrNotFound) {
		return ErrRecipeNotFound
	}
	return err
}

// Export writes every recipe as an XLSX workbook whose header row uses the
// import column names, so a saved export can be fed back to the importer.
// It returns the number of recipes written.
func (s *ModerationService) Export(ctx context.Context, w io.Writer) (int, error) {
	c := recipestore.Criteria{Sort: recipestore.Sort{Key: recipestore.SortOldest}}
	recipes, err := s.store.Find(ctx, c)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return 0, err
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return 0, err
	}
	header := make([]interface{}, len(importer.CanonicalFields))
	for i, name := range importer.CanonicalFields {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, err
	}
	for i, r := range recipes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := sw.SetRow(cell, exportRow(r)); err != nil {
			return 0, fmt.Errorf("failed to write recipe %d: %w", r.ID, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return 0, err
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	s.audit(ctx, "Recipes exported", "count", len(recipes))
	return len(recipes), nil
}

// exportRow lays out a recipe in CanonicalFields order. Text stored escaped
// is unescaped so a re-import does not escape it twice.
func exportRow(r models.Recipe) []interface{} {
	author := ""
	if r.AuthorID != nil {
		author = r.AuthorID.String()
	}
	featured := "0"
	if r.Featured {
		featured = "1"
	}
	return []interface{}{
		strconv.FormatUint(uint64(r.ID), 10),
		html.UnescapeString(r.Title),
		r.Slug,
		html.UnescapeString(r.Image),
		r.VideoURL,
		html.UnescapeString(r.VideoFile),
		html.UnescapeString(r.Description),
		strings.Join(r.IngredientList(), importer.ListDelimiter),
		strings.Join(r.InstructionList(), importer.ListDelimiter),
		html.UnescapeString(r.Tags),
		html.UnescapeString(r.PrepTime),
		html.UnescapeString(r.CookTime),
		r.Servings,
		string(r.Difficulty),
		r.Rating,
		r.RatingCount,
		string(r.Category),
		string(r.Status),
		r.Views,
		r.Likes,
		author,
		featured,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
