package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/cookistry/backend/config"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// RateLimiter is a fixed-window counter kept in Redis. A limiter without a
// client allows everything.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: config,
		now:    time.Now,
	}
}

// NewLoginRateLimiter limits login attempts per client IP and email.
func NewLoginRateLimiter(redisClient *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    cfg.LoginWindow,
		Limit:     cfg.LoginAttempts,
		KeyPrefix: "rate_limit:login",
	})
}

// NewImportRateLimiter limits bulk imports per admin.
func NewImportRateLimiter(redisClient *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Hour,
		Limit:     cfg.ImportsPerHour,
		KeyPrefix: "rate_limit:import",
	})
}

// Enabled reports whether checks reach Redis.
func (rl *RateLimiter) Enabled() bool {
	return rl != nil && rl.redis != nil && rl.config.Limit > 0 && rl.config.Window > 0
}

func (rl *RateLimiter) key(id string) (string, time.Time) {
	windowStart := rl.now().Truncate(rl.config.Window)
	return fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, id, windowStart.Unix()), windowStart
}

// IsAllowed counts a request for id and reports whether it fits the window.
func (rl *RateLimiter) IsAllowed(ctx context.Context, id string) (Decision, error) {
	if !rl.Enabled() {
		return Decision{Allowed: true}, nil
	}
	key, windowStart := rl.key(id)

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= rl.config.Limit,
		Remaining: remaining,
		Reset:     windowStart.Add(rl.config.Window),
	}, nil
}

// Reset clears the current window for id, e.g. after a successful login.
func (rl *RateLimiter) Reset(ctx context.Context, id string) error {
	if !rl.Enabled() {
		return nil
	}
	key, _ := rl.key(id)
	return rl.redis.Del(ctx, key).Err()
}

// SetHeaders writes the X-RateLimit-* headers for d.
func (rl *RateLimiter) SetHeaders(c *gin.Context, d Decision) {
	if !rl.Enabled() {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

// Reject aborts the request with 429 and a Retry-After hint.
func (rl *RateLimiter) Reject(c *gin.Context, d Decision) {
	retry := int(time.Until(d.Reset).Seconds())
	if retry < 1 {
		retry = 1
	}
	c.Header("Retry-After", strconv.Itoa(retry))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success":     false,
		"error":       "rate limit exceeded",
		"message":     fmt.Sprintf("Too many requests. Limit is %d per %v.", rl.config.Limit, rl.config.Window),
		"retry_after": retry,
	})
}

// KeyFunc derives the rate limit identity for a request. An empty key skips
// the check.
type KeyFunc func(c *gin.Context) string

// ByCaller keys on the authenticated caller.
func ByCaller(c *gin.Context) string {
	caller, ok := CallerFrom(c)
	if !ok {
		return ""
	}
	return caller.String()
}

// ByClientIPAndEmail keys on the client address plus a normalized email.
func ByClientIPAndEmail(c *gin.Context, email string) string {
	return c.ClientIP() + ":" + strings.ToLower(strings.TrimSpace(email))
}

// Middleware enforces the limit keyed by keyFunc. Redis failures let the
// request through.
func (rl *RateLimiter) Middleware(keyFunc KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" || !rl.Enabled() {
			c.Next()
			return
		}

		d, err := rl.IsAllowed(c.Request.Context(), key)
		if err != nil {
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}
		rl.SetHeaders(c, d)
		if !d.Allowed {
			rl.Reject(c, d)
			return
		}
		c.Next()
	}
}
