package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/metrics"
	"github.com/pageza/cookistry/backend/internal/router"
	"github.com/pageza/cookistry/backend/internal/testhelpers"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: config.Test,
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
			AllowedOrigins:  []string{"http://localhost:5173"},
		},
		Auth: config.AuthConfig{
			JWTSecret:  "server-test-secret-long-enough-000",
			TokenTTL:   time.Hour,
			CookieName: "cookistry_session",
			BcryptCost: 4,
		},
		Finder: config.FinderConfig{PageSize: 12},
		Import: config.ImportConfig{MaxBytes: 1 << 20, ReportedErrors: 100},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(router.Deps{
		Config:  testConfig(),
		DB:      testhelpers.SetupSQLite(t),
		Metrics: metrics.New(prometheus.NewRegistry()),
		Logger:  logger.NewNop(),
	})
}

func TestNew(t *testing.T) {
	server := newTestServer(t)
	require.NotNil(t, server)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/recipes?search=anything", nil)
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/metrics", nil)
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `cookistry_finder_queries_total{mode="search"} 1`)
	assert.Contains(t, w.Body.String(), `route="/api/v1/recipes"`)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, "/api/v1/recipes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req, _ = http.NewRequest(http.MethodOptions, "/api/v1/recipes", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeAndShutdown(t *testing.T) {
	server := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errChan := make(chan error, 1)
	go func() { errChan <- server.Serve(ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/categories", ln.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "dessert"))

	require.NoError(t, server.Shutdown(context.Background()))
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
