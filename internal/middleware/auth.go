package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/internal/types"
)

const callerKey = "caller"

// TokenValidator is an interface for validating session tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// Authenticate resolves the caller from a Bearer token or the session
// cookie. Anonymous requests pass through; RequireUser and RequireAdmin
// enforce identity on the routes that need it.
func Authenticate(validator TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		caller := claims.Caller()
		c.Set(callerKey, caller)
		c.Request = c.Request.WithContext(requestctx.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}

// CallerFrom returns the authenticated caller, if any.
func CallerFrom(c *gin.Context) (requestctx.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return requestctx.Caller{}, false
	}
	caller, ok := v.(requestctx.Caller)
	return caller, ok
}

// RequireUser rejects requests without a signed-in site user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || caller.Role != requestctx.RoleUser {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests that are not from an admin session.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !caller.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
