package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"classifieds/internal/errors"
	"classifieds/internal/model"
	"classifieds/internal/service"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*service.AuthResult, error) {
	return authResult(m.Called(ctx, email, password, name))
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	return authResult(m.Called(ctx, email, password))
}

func (m *MockAuthService) SSOLogin(ctx context.Context, sessionID string) (*service.AuthResult, error) {
	return authResult(m.Called(ctx, sessionID))
}

func (m *MockAuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func authResult(args mock.Arguments) (*service.AuthResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func TestTokenFromRequest(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{"cookie", "cookie-token", "", "cookie-token"},
		{"bearer header", "", "Bearer header-token", "header-token"},
		{"cookie wins", "cookie-token", "Bearer header-token", "cookie-token"},
		{"other scheme", "", "Basic abc", ""},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, TokenFromRequest(c))
		})
	}
}

func TestRequireSession(t *testing.T) {
	e := echo.New()
	authService := new(MockAuthService)
	user := &model.User{UserID: "user_a"}
	authService.On("CurrentUser", mock.Anything, "good").Return(user, nil)
	authService.On("CurrentUser", mock.Anything, "expired").Return(nil, errors.ErrSessionExpired)
	authService.On("CurrentUser", mock.Anything, "").Return(nil, errors.ErrNotAuthenticated)

	handler := RequireSession(authService)(func(c echo.Context) error {
		got, err := CurrentUser(c)
		require.NoError(t, err)
		return c.String(http.StatusOK, got.UserID)
	})

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer good")
		rec := httptest.NewRecorder()

		require.NoError(t, handler(e.NewContext(req, rec)))
		assert.Equal(t, "user_a", rec.Body.String())
	})

	for token, detail := range map[string]string{"expired": "Session expired", "": "Not authenticated"} {
		t.Run("rejected "+detail, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
			}
			err := handler(e.NewContext(req, httptest.NewRecorder()))

			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, http.StatusUnauthorized, he.Code)
			assert.Equal(t, detail, he.Message.(errors.ErrorResponse).Detail)
		})
	}
}

func TestCurrentUser_WithoutMiddleware(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := CurrentUser(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
