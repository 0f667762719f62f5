package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultImage is stored when a recipe arrives without an image reference.
const DefaultImage = "default-recipe.jpg"

// Category is the closed set of recipe categories. Values are stored lower-case.
type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategoryDinner    Category = "dinner"
	CategoryDessert   Category = "dessert"
	CategoryAppetizer Category = "appetizer"
	CategorySnack     Category = "snack"
	CategoryBeverage  Category = "beverage"
	CategorySoup      Category = "soup"
	CategorySalad     Category = "salad"
	CategoryBaking    Category = "baking"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryBreakfast,
	CategoryLunch,
	CategoryDinner,
	CategoryDessert,
	CategoryAppetizer,
	CategorySnack,
	CategoryBeverage,
	CategorySoup,
	CategorySalad,
	CategoryBaking,
}

// ParseCategory resolves s case-insensitively against the closed set.
func ParseCategory(s string) (Category, bool) {
	candidate := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range Categories {
		if c == candidate {
			return c, true
		}
	}
	return "", false
}

// Difficulty of a recipe.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of Easy, Medium or Hard.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Status is the moderation state of a recipe.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPublished, StatusDraft, StatusArchived:
		return true
	}
	return false
}

// Recipe is the central entity shared by the importer, the finder and the
// site features. Ingredients and Instructions are newline-delimited.
type Recipe struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Slug         string     `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Image        string     `gorm:"size:255" json:"image"`
	VideoURL     string     `gorm:"size:500" json:"video_url"`
	VideoFile    string     `gorm:"size:255" json:"video_file"`
	Description  string     `gorm:"type:text" json:"description"`
	Ingredients  string     `gorm:"type:text" json:"ingredients"`
	Instructions string     `gorm:"type:text" json:"instructions"`
	Tags         string     `gorm:"size:500" json:"tags"`
	PrepTime     string     `gorm:"size:50" json:"prep_time"`
	CookTime     string     `gorm:"size:50" json:"cook_time"`
	Servings     int        `gorm:"not null" json:"servings"`
	Difficulty   Difficulty `gorm:"size:10;not null" json:"difficulty"`
	Rating       float64    `gorm:"not null" json:"rating"`
	RatingCount  int        `gorm:"not null" json:"rating_count"`
	Views        int        `gorm:"not null" json:"views"`
	Likes        int        `gorm:"not null" json:"likes"`
	Category     Category   `gorm:"size:50;not null;index" json:"category"`
	Status       Status     `gorm:"size:20;index" json:"status"`
	AuthorID     *uuid.UUID `gorm:"type:varchar(36);index" json:"author_id,omitempty"`
	Featured     bool       `gorm:"not null" json:"featured"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IngredientList splits the stored ingredients into entries.
func (r *Recipe) IngredientList() []string {
	return splitLines(r.Ingredients)
}

// InstructionList splits the stored instructions into steps.
func (r *Recipe) InstructionList() []string {
	return splitLines(r.Instructions)
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
