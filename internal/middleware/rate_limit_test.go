package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/cookistry/backend/config"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRateLimiterWindow(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC)
	rl := NewRateLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "test"})
	rl.now = func() time.Time { return now }

	d, err := rl.IsAllowed(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC), d.Reset.UTC())

	d, err = rl.IsAllowed(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = rl.IsAllowed(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	d, err = rl.IsAllowed(ctx, "b")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "keys are counted separately")

	now = now.Add(time.Hour)
	d, err = rl.IsAllowed(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "a new window starts fresh")
}

func TestRateLimiterReset(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()
	rl := NewLoginRateLimiter(client, config.RateLimitConfig{LoginAttempts: 1, LoginWindow: time.Minute})

	d, err := rl.IsAllowed(ctx, "1.2.3.4:ada@example.com")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = rl.IsAllowed(ctx, "1.2.3.4:ada@example.com")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	require.NoError(t, rl.Reset(ctx, "1.2.3.4:ada@example.com"))
	d, err = rl.IsAllowed(ctx, "1.2.3.4:ada@example.com")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewImportRateLimiter(nil, config.RateLimitConfig{ImportsPerHour: 1})
	assert.False(t, rl.Enabled())
	for i := 0; i < 5; i++ {
		d, err := rl.IsAllowed(context.Background(), "x")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	assert.NoError(t, rl.Reset(context.Background(), "x"))
}

func TestRateLimitMiddleware(t *testing.T) {
	_, client := setupRedis(t)
	rl := NewRateLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 1, KeyPrefix: "mw"})

	r := gin.New()
	r.POST("/import", rl.Middleware(func(c *gin.Context) string { return c.GetHeader("X-Who") }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	post := func(who string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/import", nil)
		if who != "" {
			req.Header.Set("X-Who", who)
		}
		return serve(r, req)
	}

	rr := post("admin:1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = post("admin:1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate limit exceeded")

	assert.Equal(t, http.StatusOK, post("admin:2").Code)
	assert.Equal(t, http.StatusOK, post("").Code, "requests without a key are not limited")
}

func TestRateLimitMiddlewareRedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	rl := NewRateLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 1, KeyPrefix: "down"})
	mr.Close()

	r := gin.New()
	r.GET("/", rl.Middleware(func(*gin.Context) string { return "k" }), func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "rate limit check failed", rr.Header().Get("X-RateLimit-Error"))
}
