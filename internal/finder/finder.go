// Package finder answers recipe searches: filtered, ranked and paginated text
// search, the "what can I cook" ingredient match, and the featured listing.
// Store failures never reach the caller; they are logged and answered with
// an empty result.
package finder

import (
	"context"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/pageza/cookistry/backend/internal/metrics"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

const (
	DefaultPageSize = 12
	// MatchLimit caps the ingredient match result.
	MatchLimit           = 20
	DefaultFeaturedLimit = 6
	// SummaryLength and MatchSummaryLength bound card descriptions, in runes.
	SummaryLength      = 150
	MatchSummaryLength = 120
)

const (
	modeSearch      = "search"
	modeIngredients = "ingredients"
	modeFeatured    = "featured"
)

// maxEntityLen is the longest entity body html.EscapeString produces ("amp", "#39").
const maxEntityLen = 3

// Summary is the card-sized view of a recipe.
type Summary struct {
	ID          uint              `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    models.Category   `json:"category"`
	Difficulty  models.Difficulty `json:"difficulty"`
	Servings    int               `json:"servings"`
	Views       int               `json:"views"`
	Rating      float64           `json:"rating"`
	Image       string            `json:"image"`
	Featured    bool              `json:"featured"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewSummary builds a card, truncating the description to limit runes.
func NewSummary(r models.Recipe, limit int) Summary {
	return Summary{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Description: Truncate(r.Description, limit),
		Category:    r.Category,
		Difficulty:  r.Difficulty,
		Servings:    r.Servings,
		Views:       r.Views,
		Rating:      r.Rating,
		Image:       r.Image,
		Featured:    r.Featured,
		CreatedAt:   r.CreatedAt,
	}
}

// Truncate shortens s to n runes and marks the cut with "...". A cut that
// lands inside an HTML entity moves back to before the entity.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if amp := strings.LastIndexByte(cut, '&'); amp >= 0 && partialEntity(cut[amp+1:]) {
		cut = cut[:amp]
	}
	return strings.TrimRight(cut, " ") + "..."
}

// partialEntity reports whether tail could be the unterminated body of an
// entity such as "amp" or "#39".
func partialEntity(tail string) bool {
	if len(tail) > maxEntityLen {
		return false
	}
	return strings.IndexFunc(tail, func(r rune) bool {
		return !(r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r))
	}) < 0
}

// Page is one page of text search results.
type Page struct {
	Recipes       []Summary `json:"recipes"`
	Page          int       `json:"page"`
	PageSize      int       `json:"page_size"`
	TotalMatching int64     `json:"total_matching"`
	TotalPages    int       `json:"total_pages"`
}

// Match is an ingredient match result with the ingredients that hit.
type Match struct {
	Summary
	Matched []string `json:"matched"`
}

type Finder struct {
	store    recipestore.Store
	log      *logger.Logger
	metrics  *metrics.Metrics
	pageSize int
}

type Option func(*Finder)

func WithPageSize(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Finder) { f.metrics = m }
}

func New(store recipestore.Store, log *logger.Logger, opts ...Option) *Finder {
	f := &Finder{
		store:    store,
		log:      log.WithComponent("finder"),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Finder) PageSize() int {
	return f.pageSize
}

// Search runs a text search. Pages past the end come back empty with the
// totals still filled in.
func (f *Finder) Search(ctx context.Context, q Query) Page {
	if q.Page < 1 {
		q.Page = 1
	}
	page := Page{Recipes: []Summary{}, Page: q.Page, PageSize: f.pageSize}

	c := q.criteria()
	total, err := f.store.Count(ctx, c)
	if err != nil {
		f.fail(ctx, modeSearch, err, "term", q.Term)
		return page
	}
	page.TotalMatching = total
	page.TotalPages = int((total + int64(f.pageSize) - 1) / int64(f.pageSize))

	if offset := int64(q.Page-1) * int64(f.pageSize); offset < total {
		c.Limit = f.pageSize
		c.Offset = int(offset)
		recipes, err := f.store.Find(ctx, c)
		if err != nil {
			f.fail(ctx, modeSearch, err, "term", q.Term)
			return Page{Recipes: []Summary{}, Page: q.Page, PageSize: f.pageSize}
		}
		for _, r := range recipes {
			page.Recipes = append(page.Recipes, NewSummary(r, SummaryLength))
		}
	}

	f.metrics.ObserveSearch(modeSearch, len(page.Recipes), false)
	return page
}

// MatchIngredients returns up to MatchLimit recipes whose ingredients mention
// at least one of the given ingredients, most matches first.
func (f *Finder) MatchIngredients(ctx context.Context, ingredients []string) []Match {
	terms := dedupe(ingredients)
	matches := []Match{}
	if len(terms) == 0 {
		return matches
	}

	c := recipestore.Where(
		recipestore.PublishedOrBlank(),
		recipestore.IngredientsContainAny(terms),
	)
	c.Sort = recipestore.ByIngredientMatches(terms)
	c.Limit = MatchLimit

	recipes, err := f.store.Find(ctx, c)
	if err != nil {
		f.fail(ctx, modeIngredients, err, "ingredients", terms)
		return matches
	}
	for _, r := range recipes {
		matches = append(matches, Match{
			Summary: NewSummary(r, MatchSummaryLength),
			Matched: matchedIngredients(r.Ingredients, terms),
		})
	}
	f.metrics.ObserveSearch(modeIngredients, len(matches), false)
	return matches
}

func matchedIngredients(ingredients string, terms []string) []string {
	text := strings.ToLower(ingredients)
	out := []string{}
	for _, term := range terms {
		t := strings.ToLower(term)
		if strings.Contains(text, t) || strings.Contains(text, html.EscapeString(t)) {
			out = append(out, term)
		}
	}
	return out
}

// Featured returns published featured recipes, newest first.
func (f *Finder) Featured(ctx context.Context, limit int) []Summary {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	c := recipestore.Where(recipestore.StatusIs(models.StatusPublished), recipestore.FeaturedOnly())
	c.Sort = recipestore.ByNewest()
	c.Limit = limit

	out := []Summary{}
	recipes, err := f.store.Find(ctx, c)
	if err != nil {
		f.fail(ctx, modeFeatured, err)
		return out
	}
	for _, r := range recipes {
		out = append(out, NewSummary(r, SummaryLength))
	}
	f.metrics.ObserveSearch(modeFeatured, len(out), false)
	return out
}

func (f *Finder) fail(ctx context.Context, mode string, err error, keysAndValues ...interface{}) {
	f.metrics.ObserveSearch(mode, 0, true)
	fields := append([]interface{}{"mode", mode, "error", err}, keysAndValues...)
	requestctx.LoggerFrom(ctx, f.log).Error("Recipe query failed", fields...)
}
