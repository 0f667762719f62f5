package recipestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/internal/models"
)

var (
	// ErrNotFound is returned when no recipe matches the lookup.
	ErrNotFound = errors.New("recipe not found")
	// ErrConstraint wraps write failures caused by the data itself (duplicate
	// keys, foreign keys, check constraints) rather than by the store.
	ErrConstraint = errors.New("constraint violation")
)

// Store is the persistence boundary for recipes. The importer and the finder
// depend only on this interface.
type Store interface {
	Find(ctx context.Context, c Criteria) ([]models.Recipe, error)
	Count(ctx context.Context, c Criteria) (int64, error)
	Insert(ctx context.Context, r *models.Recipe) (uint, error)
	Update(ctx context.Context, id uint, r *models.Recipe) (bool, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID uint) (bool, error)
	FindByID(ctx context.Context, id uint) (*models.Recipe, error)
	FindBySlug(ctx context.Context, slug string) (*models.Recipe, error)
	IncrementViews(ctx context.Context, id uint) error
	SetStatus(ctx context.Context, id uint, status models.Status) error
	SetFeatured(ctx context.Context, id uint, featured bool) error
	// Transaction runs fn inside a transaction. Calling Transaction on the
	// store handed to fn opens a savepoint, so a nested failure rolls back
	// only the nested work.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Find(ctx context.Context, c Criteria) ([]models.Recipe, error) {
	q := c.order(c.filter(s.db.WithContext(ctx).Model(&models.Recipe{})))
	if c.Limit > 0 {
		q = q.Limit(c.Limit)
	}
	if c.Offset > 0 {
		q = q.Offset(c.Offset)
	}

	recipes := []models.Recipe{}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("find recipes: %w", err)
	}
	return recipes, nil
}

func (s *GormStore) Count(ctx context.Context, c Criteria) (int64, error) {
	var n int64
	if err := c.filter(s.db.WithContext(ctx).Model(&models.Recipe{})).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return n, nil
}

func (s *GormStore) Insert(ctx context.Context, r *models.Recipe) (uint, error) {
	explicitID := r.ID != 0
	db := s.db.WithContext(ctx)
	if err := db.Create(r).Error; err != nil {
		return 0, classify("insert recipe", err)
	}

	// A client-supplied id leaves the serial sequence behind on postgres.
	if explicitID && db.Dialector.Name() == "postgres" {
		err := db.Exec("SELECT setval(pg_get_serial_sequence('recipes', 'id'), (SELECT MAX(id) FROM recipes))").Error
		if err != nil {
			return 0, fmt.Errorf("sync recipe id sequence: %w", err)
		}
	}
	return r.ID, nil
}

// Update overwrites every column except id and created_at. A map is used so
// zero values persist and the caller's updated_at is kept.
func (s *GormStore) Update(ctx context.Context, id uint, r *models.Recipe) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Updates(updateColumns(r))
	if res.Error != nil {
		return false, classify("update recipe", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func updateColumns(r *models.Recipe) map[string]interface{} {
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return map[string]interface{}{
		"title":        r.Title,
		"slug":         r.Slug,
		"image":        r.Image,
		"video_url":    r.VideoURL,
		"video_file":   r.VideoFile,
		"description":  r.Description,
		"ingredients":  r.Ingredients,
		"instructions": r.Instructions,
		"tags":         r.Tags,
		"prep_time":    r.PrepTime,
		"cook_time":    r.CookTime,
		"servings":     r.Servings,
		"difficulty":   r.Difficulty,
		"rating":       r.Rating,
		"rating_count": r.RatingCount,
		"views":        r.Views,
		"likes":        r.Likes,
		"category":     r.Category,
		"status":       r.Status,
		"author_id":    r.AuthorID,
		"featured":     r.Featured,
		"updated_at":   updatedAt,
	}
}

func (s *GormStore) ExistsBySlug(ctx context.Context, slug string, excludeID uint) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

func (s *GormStore) FindByID(ctx context.Context, id uint) (*models.Recipe, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore) FindBySlug(ctx context.Context, slug string) (*models.Recipe, error) {
	return s.first(ctx, "slug = ?", slug)
}

func (s *GormStore) first(ctx context.Context, query string, arg interface{}) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Where(query, arg).First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	return &recipe, nil
}

func (s *GormStore) IncrementViews(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return fmt.Errorf("increment views: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetStatus(ctx context.Context, id uint, status models.Status) error {
	return s.setColumn(ctx, id, "status", status)
}

func (s *GormStore) SetFeatured(ctx context.Context, id uint, featured bool) error {
	return s.setColumn(ctx, id, "featured", featured)
}

func (s *GormStore) setColumn(ctx context.Context, id uint, column string, value interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).
		Updates(map[string]interface{}{column: value, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("set %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// classify marks data-caused failures with ErrConstraint. The gorm dialects
// translate driver codes when TranslateError is on; the message check covers
// connections opened without it.
func classify(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return fmt.Errorf("%s: %w: %v", op, ErrConstraint, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "constraint failed") || strings.Contains(msg, "violates") {
		return fmt.Errorf("%s: %w: %v", op, ErrConstraint, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
