package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pageza/cookistry/backend/internal/requestctx"
)

// TokenClaims represents the claims in a session token. Site users carry
// UserID; admins carry AdminID and the admin role.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID  uuid.UUID       `json:"user_id,omitempty"`
	AdminID uint            `json:"admin_id,omitempty"`
	Role    requestctx.Role `json:"role"`
	Name    string          `json:"name"`
}

// Caller converts the claims into the request-scoped caller identity.
func (c *TokenClaims) Caller() requestctx.Caller {
	return requestctx.Caller{
		Role:    c.Role,
		UserID:  c.UserID,
		AdminID: c.AdminID,
		Name:    c.Name,
	}
}
