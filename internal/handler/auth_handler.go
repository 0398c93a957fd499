package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/middleware"
	"github.com/mansoorceksport/cohab/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *service.AuthService
	tokenService *service.TokenService
	jwtConfig    config.JWTConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService, jwtConfig config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		jwtConfig:    jwtConfig,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type managementKeyRequest struct {
	Key string `json:"key"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}

	user, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return handleError(c, err)
	}

	tokenPair, err := h.tokenService.GenerateTokenPair(c.UserContext(), user, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return handleError(c, err)
	}
	h.setSession(c, tokenPair)

	return c.JSON(fiber.Map{
		"token":      tokenPair.AccessToken,
		"expires_in": tokenPair.ExpiresIn,
		"user":       user,
	})
}

// Refresh handles POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(middleware.RefreshCookieName)
	if refreshToken == "" {
		var req refreshRequest
		_ = c.BodyParser(&req)
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized", "No refresh token provided")
	}

	tokenPair, err := h.tokenService.RefreshAccessToken(c.UserContext(), refreshToken, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		middleware.ClearSessionCookies(c, h.jwtConfig.CookieSecure)
		return handleError(c, err)
	}
	h.setSession(c, tokenPair)

	return c.JSON(fiber.Map{
		"token":      tokenPair.AccessToken,
		"expires_in": tokenPair.ExpiresIn,
	})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if refreshToken := c.Cookies(middleware.RefreshCookieName); refreshToken != "" {
		_ = h.tokenService.RevokeRefreshToken(c.UserContext(), refreshToken)
	}
	middleware.ClearSessionCookies(c, h.jwtConfig.CookieSecure)

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authService.Me(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.ClearSessionCookies(c, h.jwtConfig.CookieSecure)
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// ManagementKeyStatus handles GET /v1/auth/management-key
func (h *AuthHandler) ManagementKeyStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"required": h.authService.ManagementKeyRequired()})
}

// VerifyManagementKey handles POST /v1/auth/management-key/verify
func (h *AuthHandler) VerifyManagementKey(c *fiber.Ctx) error {
	var req managementKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return handleError(c, domain.ErrInvalidInput)
	}
	if !h.authService.VerifyManagementKey(req.Key) {
		return errorResponse(c, fiber.StatusUnauthorized, "invalid_management_key", "Clave de administración incorrecta")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) setSession(c *fiber.Ctx, pair *service.TokenPair) {
	middleware.SetSessionCookie(c, middleware.AccessCookieName, pair.AccessToken, h.jwtConfig.AccessTokenExpiry, h.jwtConfig.CookieSecure)
	middleware.SetSessionCookie(c, middleware.RefreshCookieName, pair.RefreshToken, h.jwtConfig.RefreshTokenExpiry, h.jwtConfig.CookieSecure)
}
