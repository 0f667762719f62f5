package finder

import (
	"strconv"
	"strings"

	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
)

// FilterAll disables a category or difficulty filter.
const FilterAll = "all"

// SortMode is the user-facing name of a result ordering.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortNewest    SortMode = "newest"
	SortOldest    SortMode = "oldest"
	SortRating    SortMode = "rating"
	SortViews     SortMode = "views"
	SortTitle     SortMode = "title"
)

var sortKeys = map[SortMode]recipestore.SortKey{
	SortNewest: recipestore.SortNewest,
	SortOldest: recipestore.SortOldest,
	SortRating: recipestore.SortRating,
	SortViews:  recipestore.SortViews,
	SortTitle:  recipestore.SortTitle,
}

// Query is one text search request. Build it with ParseQuery so every field
// is normalized.
type Query struct {
	Term       string
	Category   string
	Difficulty string
	Sort       SortMode
	Page       int
}

// ParseQuery normalizes raw request parameters into a Query.
func ParseQuery(search, category, difficulty, sort, page string) Query {
	term := strings.TrimSpace(search)
	return Query{
		Term:       term,
		Category:   ParseFilter(category),
		Difficulty: ParseFilter(difficulty),
		Sort:       ParseSort(sort, term),
		Page:       ParsePage(page),
	}
}

// ParseSort resolves a sort parameter. Without a term there is nothing to
// rank by, so relevance and unknown values fall back to newest.
func ParseSort(raw, term string) SortMode {
	mode := SortMode(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := sortKeys[mode]; ok {
		return mode
	}
	if term != "" {
		return SortRelevance
	}
	return SortNewest
}

// ParseFilter trims a filter value; empty means FilterAll.
func ParseFilter(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, FilterAll) {
		return FilterAll
	}
	return v
}

// ParsePage reads a 1-indexed page number, clamping anything else to 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParseIngredients splits a comma-joined ingredient list, trimming entries,
// dropping empties and removing case-insensitive duplicates. The first
// spelling of each ingredient is kept.
func ParseIngredients(raw string) []string {
	return dedupe(strings.Split(raw, ","))
}

func dedupe(entries []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if e == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// criteria compiles the query's filters and ordering. Search only ever sees
// published recipes.
func (q Query) criteria() recipestore.Criteria {
	c := recipestore.Where(recipestore.StatusIs(models.StatusPublished))
	if q.Term != "" {
		c.Predicates = append(c.Predicates, recipestore.TextContains(q.Term))
	}
	if q.Category != FilterAll && q.Category != "" {
		c.Predicates = append(c.Predicates, recipestore.CategoryIs(categoryValue(q.Category)))
	}
	if q.Difficulty != FilterAll && q.Difficulty != "" {
		c.Predicates = append(c.Predicates, recipestore.DifficultyIs(difficultyValue(q.Difficulty)))
	}

	if q.Sort == SortRelevance && q.Term != "" {
		c.Sort = recipestore.ByRelevance(q.Term)
	} else {
		c.Sort = recipestore.Sort{Key: sortKeys[q.Sort]}
	}
	return c
}

// categoryValue maps a filter onto the stored spelling. Unknown values are
// passed through and simply match nothing.
func categoryValue(v string) models.Category {
	if c, ok := models.ParseCategory(v); ok {
		return c
	}
	return models.Category(v)
}

func difficultyValue(v string) models.Difficulty {
	for _, d := range []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		if strings.EqualFold(string(d), v) {
			return d
		}
	}
	return models.Difficulty(v)
}
