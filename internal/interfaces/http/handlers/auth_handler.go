package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopsync/backend/internal/infrastructure/auth"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/interfaces/http/dto"
	"github.com/shopsync/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// AuthHandler issues admin API tokens.
type AuthHandler struct {
	cfg    *config.Config
	jwt    *auth.JWTService
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(cfg *config.Config, jwt *auth.JWTService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{cfg: cfg, jwt: jwt, logger: logger}
}

// Routes returns the auth route group. Login is the only route and is, by
// nature, unauthenticated.
func (h *AuthHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("auth", "/auth")
	g.POST("/login", h.Login)
	return g
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Login validates the admin credentials and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_INPUT", "username and password are required"))
		return
	}

	if h.cfg.Admin.PasswordHash == "" ||
		req.Username != h.cfg.Admin.Username ||
		!auth.CheckPassword(h.cfg.Admin.PasswordHash, req.Password) {
		h.logger.Warn("admin login rejected",
			zap.String("username", req.Username), zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", "invalid credentials"))
		return
	}

	token, err := h.jwt.GenerateToken("1", req.Username)
	if err != nil {
		h.logger.Error("issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", "token generation failed"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(loginResponse{
		Token:     token,
		ExpiresIn: int64(h.cfg.JWT.TokenExpiration.Seconds()),
	}))
}
