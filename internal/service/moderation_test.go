package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/internal/testhelpers"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

func setupModerationTest(t *testing.T) (*service.ModerationService, *gorm.DB) {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	return service.NewModerationService(recipestore.NewGormStore(db), logger.NewNop()), db
}

func TestModerationList(t *testing.T) {
	svc, db := setupModerationTest(t)
	ctx := context.Background()
	for i, st := range []models.Status{models.StatusPublished, models.StatusDraft, models.StatusArchived, models.StatusDraft} {
		r := testhelpers.NewRecipe("Recipe " + string(rune('A'+i)))
		r.Status = st
		testhelpers.CreateRecipe(t, db, r)
	}

	all, err := svc.List(ctx, "", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Total)
	assert.Equal(t, 2, all.TotalPages)
	assert.Len(t, all.Recipes, 3)

	drafts, err := svc.List(ctx, "Draft", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), drafts.Total)
	for _, r := range drafts.Recipes {
		assert.Equal(t, models.StatusDraft, r.Status)
	}

	_, err = svc.List(ctx, "deleted", 1, 10)
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestModerationSetStatusAndFeatured(t *testing.T) {
	svc, db := setupModerationTest(t)
	ctx := context.Background()
	r := testhelpers.CreateRecipe(t, db, testhelpers.NewRecipe("Moderated"))

	updated, err := svc.SetStatus(ctx, r.ID, models.StatusArchived)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, updated.Status)

	featured, err := svc.SetFeatured(ctx, r.ID, true)
	require.NoError(t, err)
	assert.True(t, featured.Featured)

	_, err = svc.SetStatus(ctx, r.ID, models.Status("gone"))
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	_, err = svc.SetStatus(ctx, 9999, models.StatusDraft)
	assert.ErrorIs(t, err, service.ErrRecipeNotFound)

	_, err = svc.SetFeatured(ctx, 9999, false)
	assert.ErrorIs(t, err, service.ErrRecipeNotFound)
}

func TestExportWorkbook(t *testing.T) {
	svc, db := setupModerationTest(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "exporter")

	r := testhelpers.NewRecipe("Fish &amp; Chips")
	r.Slug = "fish-chips"
	r.Ingredients = "1 fish\n2 potatoes"
	r.Instructions = "1. Fry\n2. Serve"
	r.AuthorID = &user.ID
	r.Featured = true
	r.CreatedAt = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	testhelpers.CreateRecipe(t, db, r)

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Recipes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, importer.CanonicalFields, rows[0])

	row := map[string]string{}
	for i, name := range rows[0] {
		if i < len(rows[1]) {
			row[name] = rows[1][i]
		}
	}
	assert.Equal(t, "Fish & Chips", row["title"])
	assert.Equal(t, "fish-chips", row["slug"])
	assert.Equal(t, "1 fish||2 potatoes", row["ingredients"])
	assert.Equal(t, "1. Fry||2. Serve", row["instructions"])
	assert.Equal(t, user.ID.String(), row["author_id"])
	assert.Equal(t, "1", row["featured"])
	assert.Equal(t, "2024-05-01T08:30:00Z", row["created_at"])
	assert.Equal(t, "dinner", row["category"])
}
