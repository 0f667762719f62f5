package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
)

// DashboardStats summarizes a user's activity.
type DashboardStats struct {
	Uploads    int64 `json:"uploads"`
	Favorites  int64 `json:"favorites"`
	TotalViews int64 `json:"total_views"`
}

type FavoriteService struct {
	db    *gorm.DB
	store recipestore.Store
}

func NewFavoriteService(db *gorm.DB, store recipestore.Store) *FavoriteService {
	return &FavoriteService{db: db, store: store}
}

func (s *FavoriteService) recipe(ctx context.Context, slug string) (*models.Recipe, error) {
	r, err := s.store.FindBySlug(ctx, slug)
	if errors.Is(err, recipestore.ErrNotFound) {
		return nil, ErrRecipeNotFound
	}
	return r, err
}

// Add bookmarks a recipe. Adding one twice is not an error.
func (s *FavoriteService) Add(ctx context.Context, userID uuid.UUID, slug string) (*models.Recipe, error) {
	r, err := s.recipe(ctx, slug)
	if err != nil {
		return nil, err
	}
	fav := models.Favorite{UserID: userID, RecipeID: r.ID}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "recipe_id"}},
			DoNothing: true,
		}).
		Create(&fav).Error
	if err != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	return r, nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID uuid.UUID, slug string) error {
	r, err := s.recipe(ctx, slug)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, r.ID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// List returns the user's favorites, most recently added first.
func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Order("favorites.id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return recipes, nil
}

func (s *FavoriteService) Stats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	stats := &DashboardStats{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Recipe{}).Where("author_id = ?", userID).Count(&stats.Uploads).Error; err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}
	if err := db.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&stats.Favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}
	err := db.Model(&models.Recipe{}).
		Where("author_id = ?", userID).
		Select("COALESCE(SUM(views), 0)").
		Scan(&stats.TotalViews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum views: %w", err)
	}
	return stats, nil
}
