// Package requestctx carries per-request values (the authenticated caller,
// the request id and a request-scoped logger) through context.Context.
package requestctx

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pageza/cookistry/backend/pkg/logger"
)

type contextKey int

const (
	callerKey contextKey = iota
	loggerKey
	requestIDKey
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Caller identifies who issued a request. Exactly one of UserID and AdminID
// is set, depending on Role.
type Caller struct {
	Role    Role
	UserID  uuid.UUID
	AdminID uint
	Name    string
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

func (c Caller) String() string {
	if c.IsAdmin() {
		return fmt.Sprintf("admin:%d", c.AdminID)
	}
	return "user:" + c.UserID.String()
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

func WithLogger(ctx context.Context, l *logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// LoggerFrom returns the request logger, or fallback when none was attached.
func LoggerFrom(ctx context.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := ctx.Value(loggerKey).(*logger.Logger); ok && l != nil {
		return l
	}
	return fallback
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
