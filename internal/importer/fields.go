package importer

import (
	"strings"
)

// Canonical field names accepted as CSV headers.
const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldSlug         = "slug"
	FieldImage        = "image"
	FieldVideoURL     = "video_url"
	FieldVideoFile    = "video_file"
	FieldDescription  = "description"
	FieldIngredients  = "ingredients"
	FieldInstructions = "instructions"
	FieldTags         = "tags"
	FieldPrepTime     = "prep_time"
	FieldCookTime     = "cook_time"
	FieldServings     = "servings"
	FieldDifficulty   = "difficulty"
	FieldRating       = "rating"
	FieldRatingCount  = "rating_count"
	FieldCategory     = "category"
	FieldStatus       = "status"
	FieldViews        = "views"
	FieldLikes        = "likes"
	FieldAuthorID     = "author_id"
	FieldFeatured     = "featured"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
)

// CanonicalFields is the header allow-list, in export column order.
var CanonicalFields = []string{
	FieldID, FieldTitle, FieldSlug, FieldImage, FieldVideoURL, FieldVideoFile,
	FieldDescription, FieldIngredients, FieldInstructions, FieldTags,
	FieldPrepTime, FieldCookTime, FieldServings, FieldDifficulty, FieldRating,
	FieldRatingCount, FieldCategory, FieldStatus, FieldViews, FieldLikes,
	FieldAuthorID, FieldFeatured, FieldCreatedAt, FieldUpdatedAt,
}

var canonicalSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(CanonicalFields))
	for _, f := range CanonicalFields {
		set[f] = struct{}{}
	}
	return set
}()

const bom = "\ufeff"

// headerMap maps a column index to the canonical field it carries.
type headerMap map[int]string

// resolveHeaders builds the column map from the header row. Unknown columns
// are left out and never read. The first column naming a field wins.
func resolveHeaders(header []string) headerMap {
	m := make(headerMap)
	seen := make(map[string]bool)
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(strings.ReplaceAll(cell, bom, "")), `"'`)))
		if _, ok := canonicalSet[name]; !ok || seen[name] {
			continue
		}
		seen[name] = true
		m[i] = name
	}
	return m
}

// FieldBag holds one row's raw cell values keyed by canonical field name.
// It never leaves the package: normalize turns it into a typed recipe.
type FieldBag map[string]string

// project cleans every mapped cell and collects it under its field name.
// Fields with no column read as the empty string.
func (h headerMap) project(record []string) FieldBag {
	bag := make(FieldBag, len(h))
	for i, field := range h {
		if i < len(record) {
			bag[field] = cleanCell(record[i])
		}
	}
	return bag
}

func (b FieldBag) get(field string) string {
	return b[field]
}

// blankRecord reports whether every cell in the row is empty.
func blankRecord(record []string) bool {
	for _, cell := range record {
		if cleanCell(cell) != "" {
			return false
		}
	}
	return true
}

// cleanCell strips a byte-order mark, surrounding whitespace and stray
// double quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, bom, ""))
	return strings.TrimSpace(strings.Trim(s, `"`))
}
