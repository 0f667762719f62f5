package recipestore

import (
	"html"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/cookistry/backend/internal/models"
)

// PredicateKind enumerates the filters a Criteria can carry.
type PredicateKind int

const (
	PredStatusIs PredicateKind = iota
	PredStatusPublishedOrBlank
	PredTextContains
	PredCategoryIs
	PredDifficultyIs
	PredIngredientsContainAny
	PredAuthorIs
	PredFeaturedOnly
)

// Predicate is one typed filter. Only the fields relevant to Kind are read.
type Predicate struct {
	Kind   PredicateKind
	Value  string
	Values []string
}

// StatusIs keeps recipes whose status equals s.
func StatusIs(s models.Status) Predicate {
	return Predicate{Kind: PredStatusIs, Value: string(s)}
}

// PublishedOrBlank keeps published recipes and those with no status at all.
func PublishedOrBlank() Predicate {
	return Predicate{Kind: PredStatusPublishedOrBlank}
}

// TextContains keeps recipes whose title, description, ingredients or
// instructions contain term, ignoring case.
func TextContains(term string) Predicate {
	return Predicate{Kind: PredTextContains, Value: term}
}

func CategoryIs(c models.Category) Predicate {
	return Predicate{Kind: PredCategoryIs, Value: string(c)}
}

func DifficultyIs(d models.Difficulty) Predicate {
	return Predicate{Kind: PredDifficultyIs, Value: string(d)}
}

// IngredientsContainAny keeps recipes whose ingredients mention at least one term.
func IngredientsContainAny(terms []string) Predicate {
	return Predicate{Kind: PredIngredientsContainAny, Values: terms}
}

func AuthorIs(id uuid.UUID) Predicate {
	return Predicate{Kind: PredAuthorIs, Value: id.String()}
}

func FeaturedOnly() Predicate {
	return Predicate{Kind: PredFeaturedOnly}
}

// SortKey enumerates result orderings.
type SortKey int

const (
	SortNewest SortKey = iota
	SortOldest
	SortRating
	SortViews
	SortTitle
	SortRelevance
	SortIngredientMatches
)

// Sort selects an ordering. Terms feeds the scored orderings: the search
// term for SortRelevance, the ingredient list for SortIngredientMatches.
type Sort struct {
	Key   SortKey
	Terms []string
}

func ByNewest() Sort { return Sort{Key: SortNewest} }

func ByRelevance(term string) Sort {
	return Sort{Key: SortRelevance, Terms: []string{term}}
}

func ByIngredientMatches(terms []string) Sort {
	return Sort{Key: SortIngredientMatches, Terms: terms}
}

// Criteria describes a recipe query. A zero Limit means no limit.
type Criteria struct {
	Predicates []Predicate
	Sort       Sort
	Limit      int
	Offset     int
}

// Where returns a Criteria holding the given predicates.
func Where(preds ...Predicate) Criteria {
	return Criteria{Predicates: preds}
}

// Relevance weights per searched column.
const (
	WeightTitle        = 4
	WeightDescription  = 3
	WeightIngredients  = 2
	WeightInstructions = 1
)

var searchColumns = []struct {
	name   string
	weight int
}{
	{"title", WeightTitle},
	{"description", WeightDescription},
	{"ingredients", WeightIngredients},
	{"instructions", WeightInstructions},
}

const likeClause = ` LIKE ? ESCAPE '\'`

// likePattern lower-cases term and escapes LIKE wildcards so user input is
// matched literally.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

// containsExpr matches term as a substring of column. Text fields are
// stored HTML-escaped, so the escaped spelling of the term matches too.
func containsExpr(column, term string) (string, []interface{}) {
	lhs := "LOWER(" + column + ")" + likeClause
	raw := likePattern(term)
	escaped := likePattern(html.EscapeString(term))
	if escaped == raw {
		return lhs, []interface{}{raw}
	}
	return "(" + lhs + " OR " + lhs + ")", []interface{}{raw, escaped}
}

// filter applies the predicates only. Count queries use it directly.
func (c Criteria) filter(db *gorm.DB) *gorm.DB {
	for _, p := range c.Predicates {
		switch p.Kind {
		case PredStatusIs:
			db = db.Where("status = ?", p.Value)
		case PredStatusPublishedOrBlank:
			db = db.Where("(status = ? OR status IS NULL OR status = '')", string(models.StatusPublished))
		case PredTextContains:
			parts := make([]string, 0, len(searchColumns))
			vars := make([]interface{}, 0, len(searchColumns))
			for _, col := range searchColumns {
				expr, args := containsExpr(col.name, p.Value)
				parts = append(parts, expr)
				vars = append(vars, args...)
			}
			db = db.Where("("+strings.Join(parts, " OR ")+")", vars...)
		case PredCategoryIs:
			db = db.Where("category = ?", p.Value)
		case PredDifficultyIs:
			db = db.Where("difficulty = ?", p.Value)
		case PredIngredientsContainAny:
			if len(p.Values) == 0 {
				db = db.Where("1 = 0")
				continue
			}
			parts := make([]string, 0, len(p.Values))
			vars := make([]interface{}, 0, len(p.Values))
			for _, term := range p.Values {
				expr, args := containsExpr("ingredients", term)
				parts = append(parts, expr)
				vars = append(vars, args...)
			}
			db = db.Where("("+strings.Join(parts, " OR ")+")", vars...)
		case PredAuthorIs:
			db = db.Where("author_id = ?", p.Value)
		case PredFeaturedOnly:
			db = db.Where("featured = ?", true)
		}
	}
	return db
}

// order applies the sort. Every ordering ends on id so pages are stable.
func (c Criteria) order(db *gorm.DB) *gorm.DB {
	switch c.Sort.Key {
	case SortOldest:
		return db.Order("created_at ASC").Order("id ASC")
	case SortRating:
		return db.Order("rating DESC").Order("created_at DESC").Order("id DESC")
	case SortViews:
		return db.Order("views DESC").Order("created_at DESC").Order("id DESC")
	case SortTitle:
		return db.Order("title ASC").Order("id ASC")
	case SortRelevance:
		term := ""
		if len(c.Sort.Terms) > 0 {
			term = c.Sort.Terms[0]
		}
		parts := make([]string, 0, len(searchColumns))
		vars := make([]interface{}, 0, len(searchColumns))
		for _, col := range searchColumns {
			expr, args := containsExpr(col.name, term)
			parts = append(parts, "CASE WHEN "+expr+" THEN "+strconv.Itoa(col.weight)+" ELSE 0 END")
			vars = append(vars, args...)
		}
		return db.Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "(" + strings.Join(parts, " + ") + ") DESC, rating DESC, views DESC, id ASC",
				Vars:               vars,
				WithoutParentheses: true,
			},
		})
	case SortIngredientMatches:
		if len(c.Sort.Terms) == 0 {
			return db.Order("created_at DESC").Order("id DESC")
		}
		parts := make([]string, 0, len(c.Sort.Terms))
		vars := make([]interface{}, 0, len(c.Sort.Terms))
		for _, term := range c.Sort.Terms {
			expr, args := containsExpr("ingredients", term)
			parts = append(parts, "CASE WHEN "+expr+" THEN 1 ELSE 0 END")
			vars = append(vars, args...)
		}
		return db.Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "(" + strings.Join(parts, " + ") + ") DESC, created_at DESC, id DESC",
				Vars:               vars,
				WithoutParentheses: true,
			},
		})
	default:
		return db.Order("created_at DESC").Order("id DESC")
	}
}
