package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/internal/testhelpers"
)

func setupFavoritesTest(t *testing.T) (*service.FavoriteService, *gorm.DB) {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	return service.NewFavoriteService(db, recipestore.NewGormStore(db)), db
}

func TestFavoritesAddIsIdempotent(t *testing.T) {
	svc, db := setupFavoritesTest(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "fan")
	testhelpers.CreateRecipe(t, db, testhelpers.NewRecipe("Ramen"))

	r, err := svc.Add(ctx, user.ID, "ramen")
	require.NoError(t, err)
	assert.Equal(t, "Ramen", r.Title)

	_, err = svc.Add(ctx, user.ID, "ramen")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.Add(ctx, user.ID, "missing")
	assert.ErrorIs(t, err, service.ErrRecipeNotFound)
}

func TestFavoritesListAndRemove(t *testing.T) {
	svc, db := setupFavoritesTest(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "fan")
	other := testhelpers.CreateUser(t, db, "other")
	testhelpers.CreateRecipe(t, db, testhelpers.NewRecipe("Pho"))
	testhelpers.CreateRecipe(t, db, testhelpers.NewRecipe("Udon"))

	_, err := svc.Add(ctx, user.ID, "pho")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = svc.Add(ctx, user.ID, "udon")
	require.NoError(t, err)
	_, err = svc.Add(ctx, other.ID, "pho")
	require.NoError(t, err)

	recipes, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Udon", recipes[0].Title)
	assert.Equal(t, "Pho", recipes[1].Title)

	require.NoError(t, svc.Remove(ctx, user.ID, "pho"))
	recipes, err = svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Udon", recipes[0].Title)

	otherFavs, err := svc.List(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, otherFavs, 1)
}

func TestDashboardStats(t *testing.T) {
	svc, db := setupFavoritesTest(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "author")

	for i, title := range []string{"First Dish", "Second Dish"} {
		r := testhelpers.NewRecipe(title)
		r.AuthorID = &user.ID
		r.Views = 10 * (i + 1)
		testhelpers.CreateRecipe(t, db, r)
	}
	testhelpers.CreateRecipe(t, db, testhelpers.NewRecipe("Not Mine"))
	_, err := svc.Add(ctx, user.ID, "not-mine")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, &service.DashboardStats{Uploads: 2, Favorites: 1, TotalViews: 30}, stats)

	empty, err := svc.Stats(ctx, testhelpers.CreateUser(t, db, "newbie").ID)
	require.NoError(t, err)
	assert.Equal(t, &service.DashboardStats{}, empty)
}
