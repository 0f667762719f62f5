package api_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/service"
)

func (a *testAPI) importCSV(t *testing.T, token, filename, csv string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, nil, filePart{field: "csv_file", name: filename, content: []byte(csv)})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", body)
	req.Header.Set("Content-Type", contentType)
	bearer(req, token)
	return a.do(req)
}

func TestAdminImport(t *testing.T) {
	a := newTestAPI(t)
	token := a.adminToken(t)

	csv := "Title,Category,Ingredients\n" +
		"Beef Chili,dinner,beef||beans\n" +
		"Brunch Bowl,brunch,eggs\n" +
		",,\n" +
		"Lemon Tart,Dessert,lemons\n"
	rr := a.importCSV(t, token, "recipes.csv", csv)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var report importer.Report
	decode(t, rr, &report)
	assert.True(t, report.Success)
	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, []string{`Row 2: category "brunch" is not a recognized category`}, report.Errors)

	var stored models.Recipe
	require.NoError(t, a.db.Where("slug = ?", "beef-chili").First(&stored).Error)
	assert.Equal(t, "beef\nbeans", stored.Ingredients)
}

func TestAdminImportFailures(t *testing.T) {
	a := newTestAPI(t, withImportLimits(64, 0))
	token := a.adminToken(t)

	tests := []struct {
		name     string
		filename string
		csv      string
		status   int
		message  string
	}{
		{name: "wrong type", filename: "recipes.xlsx", csv: "title,category\nA,dinner\n", status: http.StatusBadRequest, message: ".csv"},
		{name: "unknown headers", filename: "r.csv", csv: "foo,bar\n1,2\n", status: http.StatusBadRequest, message: "title"},
		{name: "empty", filename: "r.csv", csv: "", status: http.StatusBadRequest},
		{name: "too large", filename: "r.csv", csv: "title,category\n" + strings.Repeat("Soup,soup\n", 20), status: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := a.importCSV(t, token, tt.filename, tt.csv)
			assert.Equal(t, tt.status, rr.Code)
			var failure importer.Failure
			decode(t, rr, &failure)
			assert.False(t, failure.Success)
			assert.NotEmpty(t, failure.Error)
			if tt.message != "" {
				assert.Contains(t, failure.Error, tt.message)
			}
		})
	}

	var n int64
	require.NoError(t, a.db.Model(&models.Recipe{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAdminImportCapsErrors(t *testing.T) {
	a := newTestAPI(t, withImportLimits(0, 3))
	token := a.adminToken(t)

	var b strings.Builder
	b.WriteString("title,category\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "Dish %d,nope\n", i)
	}
	rr := a.importCSV(t, token, "r.csv", b.String())
	require.Equal(t, http.StatusOK, rr.Code)

	var report importer.Report
	decode(t, rr, &report)
	assert.Equal(t, 10, report.Skipped)
	assert.Len(t, report.Errors, 3)
	assert.True(t, report.ErrorsTruncated)
}

func TestAdminImportRequiresAdmin(t *testing.T) {
	a := newTestAPI(t)
	_, userToken := a.userToken(t, "sneaky")

	assert.Equal(t, http.StatusUnauthorized, a.importCSV(t, "", "r.csv", "title,category\n").Code)
	assert.Equal(t, http.StatusForbidden, a.importCSV(t, userToken, "r.csv", "title,category\n").Code)
}

func TestAdminImportRateLimit(t *testing.T) {
	a := newTestAPI(t, withRedis(newRedis(t), config.RateLimitConfig{ImportsPerHour: 1}))
	token := a.adminToken(t)

	assert.Equal(t, http.StatusOK, a.importCSV(t, token, "r.csv", "title,category\nA,dinner\n").Code)
	rr := a.importCSV(t, token, "r.csv", "title,category\nB,dinner\n")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestAdminModeration(t *testing.T) {
	a := newTestAPI(t)
	token := a.adminToken(t)
	pub := seedRecipe(t, a, "Published Pie", nil)
	seedRecipe(t, a, "Draft Pie", func(r *models.Recipe) { r.Status = models.StatusDraft })

	var list service.RecipeList
	decode(t, a.get("/api/v1/admin/recipes", token), &list)
	assert.EqualValues(t, 2, list.Total)

	decode(t, a.get("/api/v1/admin/recipes?status=draft", token), &list)
	require.Len(t, list.Recipes, 1)
	assert.Equal(t, "Draft Pie", list.Recipes[0].Title)

	assert.Equal(t, http.StatusBadRequest, a.get("/api/v1/admin/recipes?status=deleted", token).Code)

	statusPath := fmt.Sprintf("/api/v1/admin/recipes/%d/status", pub.ID)
	rr := a.sendJSON(http.MethodPatch, statusPath, token, map[string]string{"status": "archived"})
	require.Equal(t, http.StatusOK, rr.Code)
	var updated models.Recipe
	decode(t, rr, &updated)
	assert.Equal(t, models.StatusArchived, updated.Status)

	assert.Equal(t, http.StatusBadRequest,
		a.sendJSON(http.MethodPatch, statusPath, token, map[string]string{"status": "gone"}).Code)
	assert.Equal(t, http.StatusNotFound,
		a.sendJSON(http.MethodPatch, "/api/v1/admin/recipes/9999/status", token, map[string]string{"status": "draft"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.sendJSON(http.MethodPatch, "/api/v1/admin/recipes/abc/status", token, map[string]string{"status": "draft"}).Code)

	featuredPath := fmt.Sprintf("/api/v1/admin/recipes/%d/featured", pub.ID)
	rr = a.sendJSON(http.MethodPatch, featuredPath, token, map[string]bool{"featured": true})
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &updated)
	assert.True(t, updated.Featured)

	assert.Equal(t, http.StatusBadRequest,
		a.sendJSON(http.MethodPatch, featuredPath, token, map[string]string{}).Code)
}

func TestAdminExport(t *testing.T) {
	a := newTestAPI(t)
	token := a.adminToken(t)
	seedRecipe(t, a, "Fish &amp; Chips", func(r *models.Recipe) { r.Ingredients = "fish\npotatoes" })

	rr := a.get("/api/v1/admin/recipes/export", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "1", rr.Header().Get("X-Recipe-Count"))

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Recipes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, importer.CanonicalFields, rows[0])
	assert.Equal(t, "Fish & Chips", rows[1][1])
	assert.Equal(t, "fish||potatoes", rows[1][7])
}
