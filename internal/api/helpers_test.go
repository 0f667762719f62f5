package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/api"
	"github.com/pageza/cookistry/backend/internal/finder"
	"github.com/pageza/cookistry/backend/internal/importer"
	"github.com/pageza/cookistry/backend/internal/media"
	"github.com/pageza/cookistry/backend/internal/middleware"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/internal/testhelpers"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

const cookieName = "cookistry_session"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMedia struct {
	saved []string
}

func (m *fakeMedia) Save(_ context.Context, kind media.Kind, up media.Upload) (string, error) {
	if _, err := io.ReadAll(up.Body); err != nil {
		return "", err
	}
	m.saved = append(m.saved, up.Filename)
	return "https://cdn.example.com/" + string(kind) + "/" + up.Filename, nil
}

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
	media  *fakeMedia
}

type apiOptions struct {
	redis          *redis.Client
	rateLimit      config.RateLimitConfig
	importMaxBytes int64
	reportedErrors int
}

type apiOption func(*apiOptions)

func withRedis(client *redis.Client, rl config.RateLimitConfig) apiOption {
	return func(o *apiOptions) {
		o.redis = client
		o.rateLimit = rl
	}
}

func withImportLimits(maxBytes int64, reportedErrors int) apiOption {
	return func(o *apiOptions) {
		o.importMaxBytes = maxBytes
		o.reportedErrors = reportedErrors
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestAPI(t *testing.T, opts ...apiOption) *testAPI {
	t.Helper()
	o := &apiOptions{}
	for _, opt := range opts {
		opt(o)
	}

	log := logger.NewNop()
	db := testhelpers.SetupSQLite(t)
	authCfg := config.AuthConfig{
		JWTSecret:  "api-test-secret-long-enough-0000000",
		TokenTTL:   time.Hour,
		CookieName: cookieName,
		BcryptCost: bcrypt.MinCost,
	}
	authService := service.NewAuthService(db, authCfg, log)
	store := recipestore.NewGormStore(db)
	fm := &fakeMedia{}
	recipes := service.NewRecipeService(store, fm, log)
	favorites := service.NewFavoriteService(db, store)

	r := gin.New()
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.Authenticate(authService, cookieName))
	api.RegisterRoutes(r, api.Handlers{
		Auth:      api.NewAuthHandler(authService, middleware.NewLoginRateLimiter(o.redis, o.rateLimit), authCfg, log),
		Recipes:   api.NewRecipeHandler(recipes, favorites, finder.New(store, log), log),
		Dashboard: api.NewDashboardHandler(recipes, favorites, log),
		Admin: api.NewAdminHandler(
			importer.New(store, log, importer.WithMaxBytes(o.importMaxBytes)),
			service.NewModerationService(store, log),
			middleware.NewImportRateLimiter(o.redis, o.rateLimit),
			o.reportedErrors,
			log,
		),
		Health: api.NewHealthHandler(db, o.redis),
	})

	return &testAPI{router: r, db: db, auth: authService, media: fm}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	bearer(req, token)
	return a.do(req)
}

func (a *testAPI) sendJSON(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	bearer(req, token)
	return a.do(req)
}

func bearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (a *testAPI) userToken(t *testing.T, name string) (models.User, string) {
	t.Helper()
	user := testhelpers.CreateUser(t, a.db, name)
	token, err := a.auth.UserToken(&user)
	require.NoError(t, err)
	return user, token
}

func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	admin := testhelpers.CreateAdmin(t, a.db, "admin")
	token, err := a.auth.AdminToken(&admin)
	require.NoError(t, err)
	return token
}

type filePart struct {
	field, name string
	content     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}
