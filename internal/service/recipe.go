package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/media"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

var ErrRecipeNotFound = errors.New("recipe not found")

// InputError reports a user-correctable problem with submitted recipe data.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return e.Field + " " + e.Reason
}

// RecipeInput is a user-submitted recipe before sanitizing. Ingredients and
// Instructions hold one entry per line; "||" separators are accepted too.
type RecipeInput struct {
	Title        string `validate:"required,max=255"`
	Description  string `validate:"max=5000"`
	Ingredients  string `validate:"required"`
	Instructions string `validate:"required"`
	Category     string `validate:"required"`
	Difficulty   string
	PrepTime     string `validate:"max=50"`
	CookTime     string `validate:"max=50"`
	Servings     string
	Tags         string `validate:"max=500"`
	VideoURL     string `validate:"omitempty,url,max=500"`
	Image        *media.Upload
	VideoFile    *media.Upload
}

// RecipeService backs the user-facing recipe pages: uploads, the detail page
// and "my recipes".
type RecipeService struct {
	store    recipestore.Store
	media    MediaStore
	policy   *bluemonday.Policy
	validate *validator.Validate
	log      *logger.Logger
}

// NewRecipeService builds the service. media may be nil, in which case
// uploads keep the default image and ignore attached files.
func NewRecipeService(store recipestore.Store, mediaStore MediaStore, log *logger.Logger) *RecipeService {
	return &RecipeService{
		store:    store,
		media:    mediaStore,
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(),
		log:      log.WithComponent("recipes"),
	}
}

// Create stores a recipe uploaded by author. The recipe is published
// immediately and gets a unique slug derived from its title.
func (s *RecipeService) Create(ctx context.Context, author uuid.UUID, in RecipeInput) (*models.Recipe, error) {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &InputError{Field: strings.ToLower(verrs[0].Field()), Reason: "failed " + verrs[0].Tag() + " check"}
		}
		return nil, err
	}

	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, &InputError{Field: "category", Reason: "is not a recognized category"}
	}
	ingredients := s.lines(in.Ingredients)
	if len(ingredients) == 0 {
		return nil, &InputError{Field: "ingredients", Reason: "must list at least one ingredient"}
	}
	steps := s.lines(in.Instructions)
	if len(steps) == 0 {
		return nil, &InputError{Field: "instructions", Reason: "must list at least one step"}
	}

	now := time.Now()
	r := &models.Recipe{
		Title:        s.clean(in.Title),
		Image:        models.DefaultImage,
		VideoURL:     importer.SanitizeURL(in.VideoURL),
		Description:  s.clean(in.Description),
		Ingredients:  strings.Join(ingredients, "\n"),
		Instructions: strings.Join(importer.NumberSteps(steps), "\n"),
		Tags:         s.clean(in.Tags),
		PrepTime:     s.clean(in.PrepTime),
		CookTime:     s.clean(in.CookTime),
		Servings:     servings(in.Servings),
		Difficulty:   importer.ParseDifficulty(in.Difficulty),
		Rating:       4.0,
		Category:     category,
		Status:       models.StatusPublished,
		AuthorID:     &author,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if r.Title == "" {
		return nil, &InputError{Field: "title", Reason: "is required"}
	}

	if err := s.attachMedia(ctx, r, in); err != nil {
		return nil, err
	}

	base := recipestore.Slugify(html.UnescapeString(r.Title))
	if base == "" {
		base = recipestore.FallbackSlug()
	}
	err := s.store.Transaction(ctx, func(tx recipestore.Store) error {
		slug, err := recipestore.UniqueSlug(ctx, tx, base, 0)
		if err != nil {
			return err
		}
		r.Slug = slug
		id, err := tx.Insert(ctx, r)
		if err != nil {
			return err
		}
		r.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}

	requestctx.LoggerFrom(ctx, s.log).Info("Recipe uploaded", "recipe_id", r.ID, "slug", r.Slug, "author_id", author.String())
	return r, nil
}

func (s *RecipeService) attachMedia(ctx context.Context, r *models.Recipe, in RecipeInput) error {
	if s.media == nil {
		return nil
	}
	if in.Image != nil {
		url, err := s.media.Save(ctx, media.KindImage, *in.Image)
		if err != nil {
			return mediaError("image", err)
		}
		r.Image = url
	}
	if in.VideoFile != nil {
		url, err := s.media.Save(ctx, media.KindVideo, *in.VideoFile)
		if err != nil {
			return mediaError("video_file", err)
		}
		r.VideoFile = url
	}
	return nil
}

func mediaError(field string, err error) error {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return &InputError{Field: field, Reason: "has an unsupported file type"}
	case errors.Is(err, media.ErrTooLarge):
		return &InputError{Field: field, Reason: "is too large"}
	}
	return fmt.Errorf("failed to store %s: %w", field, err)
}

// clean strips all markup and escapes what is left for storage.
func (s *RecipeService) clean(v string) string {
	return html.EscapeString(strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v))))
}

func (s *RecipeService) lines(v string) []string {
	v = strings.ReplaceAll(strings.ReplaceAll(v, "\r\n", "\n"), "\n", importer.ListDelimiter)
	entries := importer.SplitList(v)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if c := s.clean(e); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func servings(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 4
	}
	if n < 1 {
		return 1
	}
	return n
}

// GetBySlug returns a published recipe and counts the view.
func (s *RecipeService) GetBySlug(ctx context.Context, slug string) (*models.Recipe, error) {
	r, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, recipestore.ErrNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	if r.Status != models.StatusPublished && r.Status != "" {
		return nil, ErrRecipeNotFound
	}

	if err := s.store.IncrementViews(ctx, r.ID); err != nil {
		requestctx.LoggerFrom(ctx, s.log).Warn("Failed to count recipe view", "recipe_id", r.ID, "error", err)
	} else {
		r.Views++
	}
	return r, nil
}

// ListByAuthor returns every recipe the user uploaded, newest first.
func (s *RecipeService) ListByAuthor(ctx context.Context, author uuid.UUID) ([]models.Recipe, error) {
	c := recipestore.Where(recipestore.AuthorIs(author))
	c.Sort = recipestore.ByNewest()
	return s.store.Find(ctx, c)
}
