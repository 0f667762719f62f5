package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/internal/media"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/internal/testhelpers"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

type fakeMedia struct {
	saved []media.Kind
	err   error
}

func (f *fakeMedia) Save(_ context.Context, kind media.Kind, up media.Upload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, kind)
	return "https://cdn.example.com/" + string(kind) + "/" + up.Filename, nil
}

func setupRecipeTest(t *testing.T, m service.MediaStore) (*service.RecipeService, *gorm.DB, models.User) {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.CreateUser(t, db, "uploader")
	return service.NewRecipeService(recipestore.NewGormStore(db), m, logger.NewNop()), db, user
}

func validInput() service.RecipeInput {
	return service.RecipeInput{
		Title:        "Grandma's <b>Apple</b> Pie",
		Description:  "<script>alert(1)</script>Flaky & sweet",
		Ingredients:  "3 apples\r\n\r\n1 crust||sugar",
		Instructions: "Peel apples\n2. Bake\nCool",
		Category:     "Dessert",
		Difficulty:   "easy",
		Servings:     "8",
	}
}

func TestCreateRecipe(t *testing.T) {
	svc, _, user := setupRecipeTest(t, nil)

	r, err := svc.Create(context.Background(), user.ID, validInput())
	require.NoError(t, err)

	assert.NotZero(t, r.ID)
	assert.Equal(t, "Grandma&#39;s Apple Pie", r.Title)
	assert.Equal(t, "grandma-s-apple-pie", r.Slug)
	assert.Equal(t, "Flaky &amp; sweet", r.Description)
	assert.Equal(t, "3 apples\n1 crust\nsugar", r.Ingredients)
	assert.Equal(t, "1. Peel apples\n2. Bake\n1. Cool", r.Instructions)
	assert.Equal(t, models.CategoryDessert, r.Category)
	assert.Equal(t, models.DifficultyEasy, r.Difficulty)
	assert.Equal(t, models.StatusPublished, r.Status)
	assert.Equal(t, models.DefaultImage, r.Image)
	assert.Equal(t, 8, r.Servings)
	require.NotNil(t, r.AuthorID)
	assert.Equal(t, user.ID, *r.AuthorID)

	again, err := svc.Create(context.Background(), user.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, "grandma-s-apple-pie-1", again.Slug)
}

func TestCreateRecipeRejectsBadInput(t *testing.T) {
	svc, _, user := setupRecipeTest(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *service.RecipeInput)
		field  string
	}{
		{"missing title", func(in *service.RecipeInput) { in.Title = "" }, "title"},
		{"markup only title", func(in *service.RecipeInput) { in.Title = "<i></i>" }, "title"},
		{"unknown category", func(in *service.RecipeInput) { in.Category = "brunch" }, "category"},
		{"blank ingredients", func(in *service.RecipeInput) { in.Ingredients = " || \n" }, "ingredients"},
		{"bad video url", func(in *service.RecipeInput) { in.VideoURL = "not a url" }, "videourl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(ctx, user.ID, in)
			var inputErr *service.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestCreateRecipeStoresMedia(t *testing.T) {
	m := &fakeMedia{}
	svc, _, user := setupRecipeTest(t, m)

	in := validInput()
	in.Image = &media.Upload{Filename: "pie.jpg", Size: 3, Body: strings.NewReader("img")}
	in.VideoFile = &media.Upload{Filename: "pie.mp4", Size: 3, Body: strings.NewReader("vid")}

	r, err := svc.Create(context.Background(), user.ID, in)
	require.NoError(t, err)
	assert.Equal(t, []media.Kind{media.KindImage, media.KindVideo}, m.saved)
	assert.Equal(t, "https://cdn.example.com/images/pie.jpg", r.Image)
	assert.Equal(t, "https://cdn.example.com/videos/pie.mp4", r.VideoFile)
}

func TestCreateRecipeMediaErrors(t *testing.T) {
	svc, db, user := setupRecipeTest(t, &fakeMedia{err: media.ErrUnsupportedType})

	in := validInput()
	in.Image = &media.Upload{Filename: "pie.exe", Size: 3, Body: strings.NewReader("bad")}
	_, err := svc.Create(context.Background(), user.ID, in)

	var inputErr *service.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "image", inputErr.Field)

	var count int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)

	failing, _, _ := setupRecipeTest(t, &fakeMedia{err: errors.New("s3 down")})
	_, err = failing.Create(context.Background(), user.ID, in)
	require.Error(t, err)
	assert.False(t, errors.As(err, &inputErr))
}

func TestGetBySlugCountsViews(t *testing.T) {
	svc, db, _ := setupRecipeTest(t, nil)
	ctx := context.Background()
	testhelpers.CreateRecipe(t, db, testhelpers.NewRecipe("Lasagna"))
	draft := testhelpers.NewRecipe("Secret Lasagna")
	draft.Status = models.StatusDraft
	testhelpers.CreateRecipe(t, db, draft)

	r, err := svc.GetBySlug(ctx, "lasagna")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Views)

	r, err = svc.GetBySlug(ctx, "lasagna")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Views)

	_, err = svc.GetBySlug(ctx, "secret-lasagna")
	assert.ErrorIs(t, err, service.ErrRecipeNotFound)

	_, err = svc.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrRecipeNotFound)
}

func TestListByAuthor(t *testing.T) {
	svc, db, user := setupRecipeTest(t, nil)
	ctx := context.Background()

	mine := testhelpers.NewRecipe("Mine")
	mine.AuthorID = &user.ID
	testhelpers.CreateRecipe(t, db, mine)
	testhelpers.CreateRecipe(t, db, testhelpers.NewRecipe("Someone Else"))

	recipes, err := svc.ListByAuthor(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Mine", recipes[0].Title)

	none, err := svc.ListByAuthor(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
