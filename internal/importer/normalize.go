package importer

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pageza/cookistry/backend/internal/models"
)

// ListDelimiter separates entries inside ingredients and instructions cells.
const ListDelimiter = "||"

const (
	defaultServings = 4
	defaultRating   = 4.0
	minRating       = 1.0
	maxRating       = 5.0
)

// RowError describes why a single row was skipped.
type RowError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("Row %d: %s %q %s", e.Row, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("Row %d: %s %s", e.Row, e.Field, e.Reason)
}

var (
	numberedStep = regexp.MustCompile(`^\d+\.`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	titleCaser   = cases.Title(language.English)
)

// normalize validates a field bag and converts it into a typed recipe. The
// slug is left raw; the importer resolves it against the store.
func normalize(row int, bag FieldBag, now time.Time) (*models.Recipe, *RowError) {
	title := bag.get(FieldTitle)
	if title == "" {
		return nil, &RowError{Row: row, Field: FieldTitle, Reason: "is required"}
	}
	rawCategory := bag.get(FieldCategory)
	if rawCategory == "" {
		return nil, &RowError{Row: row, Field: FieldCategory, Reason: "is required"}
	}
	category, ok := models.ParseCategory(rawCategory)
	if !ok {
		return nil, &RowError{Row: row, Field: FieldCategory, Value: rawCategory, Reason: "is not a recognized category"}
	}

	r := &models.Recipe{
		ID:           parseID(bag.get(FieldID)),
		Title:        escapeText(title),
		Slug:         bag.get(FieldSlug),
		Image:        escapeText(bag.get(FieldImage)),
		VideoURL:     SanitizeURL(bag.get(FieldVideoURL)),
		VideoFile:    escapeText(bag.get(FieldVideoFile)),
		Description:  escapeText(bag.get(FieldDescription)),
		Ingredients:  strings.Join(SplitList(bag.get(FieldIngredients)), "\n"),
		Instructions: strings.Join(NumberSteps(SplitList(bag.get(FieldInstructions))), "\n"),
		Tags:         escapeText(bag.get(FieldTags)),
		PrepTime:     escapeText(bag.get(FieldPrepTime)),
		CookTime:     escapeText(bag.get(FieldCookTime)),
		Servings:     parseServings(bag.get(FieldServings)),
		Difficulty:   ParseDifficulty(bag.get(FieldDifficulty)),
		Rating:       parseRating(bag.get(FieldRating)),
		RatingCount:  parseCounter(bag.get(FieldRatingCount)),
		Views:        parseCounter(bag.get(FieldViews)),
		Likes:        parseCounter(bag.get(FieldLikes)),
		Category:     category,
		Status:       ParseStatus(bag.get(FieldStatus)),
		AuthorID:     parseAuthor(bag.get(FieldAuthorID)),
		Featured:     parseFlag(bag.get(FieldFeatured)),
		CreatedAt:    parseTime(bag.get(FieldCreatedAt), now),
		UpdatedAt:    parseTime(bag.get(FieldUpdatedAt), now),
	}
	if r.Image == "" {
		r.Image = models.DefaultImage
	}
	return r, nil
}

func escapeText(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// SplitList splits a ||-delimited cell, trims each entry and drops empties.
func SplitList(cell string) []string {
	out := []string{}
	for _, entry := range strings.Split(cell, ListDelimiter) {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// NumberSteps prefixes "<n>. " to steps that are not already numbered. The
// counter restarts after every step that carries its own number, so
// "Mix", "2. Bake", "Serve" becomes "1. Mix", "2. Bake", "1. Serve".
func NumberSteps(steps []string) []string {
	out := make([]string, 0, len(steps))
	n := 0
	for _, step := range steps {
		if numberedStep.MatchString(step) {
			n = 0
			out = append(out, step)
			continue
		}
		n++
		out = append(out, fmt.Sprintf("%d. %s", n, step))
	}
	return out
}

// SanitizeURL drops every character that cannot appear in a URL.
func SanitizeURL(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("$-_.+!*'(),{}|\\^~[]`<>#%\";/?:@&=", r):
			return r
		}
		return -1
	}, s)
}

// ParseDifficulty title-cases s and falls back to Medium.
func ParseDifficulty(s string) models.Difficulty {
	d := models.Difficulty(titleCaser.String(strings.ToLower(strings.TrimSpace(s))))
	if d.Valid() {
		return d
	}
	return models.DifficultyMedium
}

// ParseStatus lower-cases s and falls back to published.
func ParseStatus(s string) models.Status {
	st := models.Status(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st
	}
	return models.StatusPublished
}

func parseID(s string) uint {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// parseInt reads the leading integer of s, so "3 people" is 3.
func parseInt(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseServings(s string) int {
	n, ok := parseInt(s)
	if !ok {
		return defaultServings
	}
	if n < 1 {
		return 1
	}
	return n
}

func parseCounter(s string) int {
	n, ok := parseInt(s)
	if !ok || n < 0 {
		return 0
	}
	return n
}

func parseRating(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return defaultRating
	}
	return math.Max(minRating, math.Min(maxRating, f))
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "true", "on":
		return true
	}
	return false
}

func parseAuthor(s string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}

func parseTime(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return now
	}
	return t
}
