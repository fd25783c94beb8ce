package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"classifieds/internal/errors"
	"classifieds/internal/model"
	"classifieds/internal/service"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_token"

const userContextKey = "user"

// TokenFromRequest returns the session token from the cookie, falling back to
// an "Authorization: Bearer" header. It returns "" when neither is present.
func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireSession rejects requests without a valid session and stores the
// authenticated user in the context.
func RequireSession(authService service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authService.CurrentUser(c.Request().Context(), TokenFromRequest(c))
			if err != nil {
				httpErr := errors.MapErrorToHTTP(err)
				return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by RequireSession.
func CurrentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(userContextKey).(*model.User)
	if !ok || user == nil {
		httpErr := errors.MapErrorToHTTP(errors.ErrNotAuthenticated)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, httpErr.ToErrorResponse())
	}
	return user, nil
}
