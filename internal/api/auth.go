package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/middleware"
	"github.com/pageza/cookistry/backend/internal/service"
	"github.com/pageza/cookistry/backend/internal/types"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

// AuthHandler serves registration and login for site users and admins.
type AuthHandler struct {
	auth    service.IAuthService
	limiter *middleware.RateLimiter
	cfg     config.AuthConfig
	log     *logger.Logger
}

func NewAuthHandler(auth service.IAuthService, limiter *middleware.RateLimiter, cfg config.AuthConfig, log *logger.Logger) *AuthHandler {
	if cfg.CookieName == "" {
		cfg.CookieName = "cookistry_session"
	}
	return &AuthHandler{auth: auth, limiter: limiter, cfg: cfg, log: log.WithComponent("auth-api")}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
	}
	router.GET("/me", middleware.RequireUser(), h.Me)
	router.POST("/admin/login", h.AdminLogin)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered"})
			return
		}
		serverError(c, h.log, "Failed to register", err)
		return
	}

	token, err := h.auth.UserToken(user)
	if err != nil {
		serverError(c, h.log, "Failed to create session", err)
		return
	}
	h.setSession(c, token)
	c.JSON(http.StatusCreated, types.AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	key := middleware.ByClientIPAndEmail(c, req.Email)
	if !h.allow(c, key) {
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		serverError(c, h.log, "Failed to log in", err)
		return
	}
	h.resetLimit(c, key)

	token, err := h.auth.UserToken(user)
	if err != nil {
		serverError(c, h.log, "Failed to create session", err)
		return
	}
	h.setSession(c, token)
	c.JSON(http.StatusOK, types.AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req types.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	key := middleware.ByClientIPAndEmail(c, "admin:"+req.Username)
	if !h.allow(c, key) {
		return
	}

	admin, err := h.auth.AdminLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Warn("Failed admin login", "username", req.Username, "client_ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		serverError(c, h.log, "Failed to log in", err)
		return
	}
	h.resetLimit(c, key)

	token, err := h.auth.AdminToken(admin)
	if err != nil {
		serverError(c, h.log, "Failed to create session", err)
		return
	}
	h.setSession(c, token)
	c.JSON(http.StatusOK, types.AuthResponse{Token: token, User: admin})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	user, err := h.auth.GetUserByID(c.Request.Context(), caller.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		serverError(c, h.log, "Failed to load user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, token, int(h.cfg.TokenTTL.Seconds()), "/", "", h.cfg.CookieSecure, true)
}

// allow applies the login limiter. Limiter faults never block a login.
func (h *AuthHandler) allow(c *gin.Context, key string) bool {
	d, err := h.limiter.IsAllowed(c.Request.Context(), key)
	if err != nil {
		h.log.Warn("Login rate limit check failed", "error", err)
		return true
	}
	h.limiter.SetHeaders(c, d)
	if !d.Allowed {
		h.limiter.Reject(c, d)
		return false
	}
	return true
}

func (h *AuthHandler) resetLimit(c *gin.Context, key string) {
	if err := h.limiter.Reset(c.Request.Context(), key); err != nil {
		h.log.Warn("Failed to reset login rate limit", "error", err)
	}
}
