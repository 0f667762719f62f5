package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/pageza/cookistry/backend/internal/media"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/types"
)

// MediaStore persists uploaded files and returns a public reference.
type MediaStore interface {
	Save(ctx context.Context, kind media.Kind, up media.Upload) (string, error)
}

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	AdminLogin(ctx context.Context, username, password string) (*models.AdminUser, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserToken(user *models.User) (string, error)
	AdminToken(admin *models.AdminUser) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
}

// IRecipeService defines the interface for user-facing recipe operations
type IRecipeService interface {
	Create(ctx context.Context, author uuid.UUID, in RecipeInput) (*models.Recipe, error)
	GetBySlug(ctx context.Context, slug string) (*models.Recipe, error)
	ListByAuthor(ctx context.Context, author uuid.UUID) ([]models.Recipe, error)
}

// IFavoriteService defines the interface for favorites and the user dashboard
type IFavoriteService interface {
	Add(ctx context.Context, userID uuid.UUID, slug string) (*models.Recipe, error)
	Remove(ctx context.Context, userID uuid.UUID, slug string) error
	List(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error)
	Stats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error)
}

// IModerationService defines the interface for admin recipe management
type IModerationService interface {
	List(ctx context.Context, status string, page, pageSize int) (*RecipeList, error)
	SetStatus(ctx context.Context, id uint, status models.Status) (*models.Recipe, error)
	SetFeatured(ctx context.Context, id uint, featured bool) (*models.Recipe, error)
	Export(ctx context.Context, w io.Writer) (int, error)
}
