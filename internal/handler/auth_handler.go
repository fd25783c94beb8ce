package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"classifieds/internal/middleware"
	"classifieds/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  service.AuthService
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SSOSessionRequest carries the one-time id handed out by the identity provider.
type SSOSessionRequest struct {
	SessionID string `json:"session_id"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	UserID       string  `json:"user_id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Picture      *string `json:"picture"`
	SessionToken string  `json:"session_token"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return h.respondWithSession(c, res)
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}
	return h.respondWithSession(c, res)
}

// SSOSession godoc
// @Summary Complete a single sign-on handshake
// @Description Exchanges the identity provider's session id for a local session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SSOSessionRequest true "Provider session id"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/google/session [post]
func (h *AuthHandler) SSOSession(c echo.Context) error {
	var req SSOSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.authService.SSOLogin(c.Request().Context(), req.SessionID)
	if err != nil {
		return toHTTPError(err)
	}
	return h.respondWithSession(c, res)
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Logout godoc
// @Summary Logout
// @Description Deletes the current session if there is one. Always succeeds.
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), middleware.TokenFromRequest(c)); err != nil {
		return toHTTPError(err)
	}
	h.setSessionCookie(c, "", time.Unix(0, 0), -1)
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) respondWithSession(c echo.Context, res *service.AuthResult) error {
	maxAge := int(time.Until(res.ExpiresAt).Seconds())
	h.setSessionCookie(c, res.SessionToken, res.ExpiresAt, maxAge)

	return c.JSON(http.StatusOK, AuthResponse{
		UserID:       res.User.UserID,
		Email:        res.User.Email,
		Name:         res.User.Name,
		Picture:      res.User.Picture,
		SessionToken: res.SessionToken,
	})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, value string, expires time.Time, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.cookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: sameSite,
	})
}
