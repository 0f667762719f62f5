package testhelpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
)

// TestPassword is the plain-text password given to fixture accounts.
const TestPassword = "testpassword123"

// NewRecipe returns a valid published recipe. Callers tweak fields before
// persisting it with CreateRecipe.
func NewRecipe(title string) models.Recipe {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Recipe{
		Title:        title,
		Slug:         recipestore.Slugify(title),
		Image:        models.DefaultImage,
		Description:  "A recipe called " + title,
		Ingredients:  "1 cup water",
		Instructions: "1. Cook",
		Servings:     4,
		Difficulty:   models.DifficultyMedium,
		Rating:       4.0,
		Category:     models.CategoryDinner,
		Status:       models.StatusPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateRecipe inserts r and fails the test on error.
func CreateRecipe(t *testing.T, db *gorm.DB, r models.Recipe) models.Recipe {
	t.Helper()
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("failed to create recipe %q: %v", r.Title, err)
	}
	return r
}

// CreateUser inserts a user whose password is TestPassword.
func CreateUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	id := uuid.New()
	user := models.User{
		ID:           id,
		Name:         name,
		Email:        fmt.Sprintf("%s+%s@example.com", name, id.String()[:8]),
		PasswordHash: string(hash),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateAdmin inserts an admin account whose password is TestPassword.
func CreateAdmin(t *testing.T, db *gorm.DB, username string) models.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	admin := models.AdminUser{Username: username, Email: username + "@example.com", PasswordHash: string(hash)}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	return admin
}
