package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"herald/config"
	"herald/internal/delivery/api/middleware"
	"herald/internal/delivery/api/validator"
	"herald/internal/domain/constants"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/service"
	"herald/internal/errors"
	mockUsecase "herald/internal/mocks/usecase"
	"herald/internal/usecase"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authHandlerFixtures struct {
	echo    *echo.Echo
	handler *AuthHandler
	authUC  *mockUsecase.MockAuthUsecase
}

func createTestAuthHandler(t *testing.T) authHandlerFixtures {
	authUC := mockUsecase.NewMockAuthUsecase(t)
	e := echo.New()
	e.Validator = validator.New()

	h := NewAuthHandler(AuthHandlerParams{
		AuthUC: authUC,
		Config: &config.Config{Auth: &config.AuthConfig{
			Cookie: config.CookieConfig{Domain: "example.com", Secure: true, SameSite: "strict"},
		}},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return authHandlerFixtures{echo: e, handler: h, authUC: authUC}
}

func testPair() *service.TokenPair {
	now := time.Now()

	return &service.TokenPair{
		AccessToken:      "access-1",
		RefreshToken:     "refresh-1",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	return req
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, cookie := range rec.Result().Cookies() {
		out[cookie.Name] = cookie
	}

	return out
}

func TestAuthHandler_Login_SetsCookies(t *testing.T) {
	fx := createTestAuthHandler(t)
	pair := testPair()
	fx.authUC.EXPECT().
		Login(mock.Anything, &usecase.LoginInput{Email: "a@example.com", Password: "secret-pw"}).
		Return(&usecase.AuthOutput{Account: &entity.Identity{ID: uuid.New()}, Tokens: pair}, nil)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"secret-pw"}`), rec)

	require.NoError(t, fx.handler.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := cookiesByName(rec)
	access := cookies[constants.CookieAccessToken]
	require.NotNil(t, access)
	assert.Equal(t, "access-1", access.Value)
	assert.Equal(t, "/", access.Path)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)

	refresh := cookies[constants.CookieRefreshToken]
	require.NotNil(t, refresh)
	assert.Equal(t, "refresh-1", refresh.Value)
	assert.Equal(t, "/auth", refresh.Path)

	assert.Contains(t, rec.Body.String(), `"access_token":"access-1"`)
}

func TestAuthHandler_Login_ValidationError(t *testing.T) {
	fx := createTestAuthHandler(t)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"email":"not-an-email"}`), rec)

	err := fx.handler.Login(c)

	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestAuthHandler_Refresh_PrefersCookie(t *testing.T) {
	fx := createTestAuthHandler(t)
	fx.authUC.EXPECT().Refresh(mock.Anything, "cookie-token").Return(testPair(), nil)

	req := jsonRequest(http.MethodPost, "/auth/refresh", `{"refreshToken":"body-token"}`)
	req.AddCookie(&http.Cookie{Name: constants.CookieRefreshToken, Value: "cookie-token"})
	rec := httptest.NewRecorder()

	require.NoError(t, fx.handler.Refresh(fx.echo.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refresh-1", cookiesByName(rec)[constants.CookieRefreshToken].Value)
}

func TestAuthHandler_Refresh_FromBody(t *testing.T) {
	fx := createTestAuthHandler(t)
	fx.authUC.EXPECT().Refresh(mock.Anything, "body-token").Return(testPair(), nil)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refreshToken":"body-token"}`), rec)

	require.NoError(t, fx.handler.Refresh(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_Refresh_Failures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantReason  string
		wantCleared bool
	}{
		{name: "expired", err: errors.Wrap(domainerrors.ErrTokenExpired, "exp"), wantReason: "expired"},
		{name: "invalid", err: errors.Wrap(domainerrors.ErrTokenInvalid, "sig"), wantReason: "invalid"},
		{name: "rotated", err: errors.Wrap(domainerrors.ErrTokenRotated, "reuse"), wantReason: "rotated", wantCleared: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestAuthHandler(t)
			fx.authUC.EXPECT().Refresh(mock.Anything, "tok").Return(nil, tt.err)

			rec := httptest.NewRecorder()
			c := fx.echo.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refreshToken":"tok"}`), rec)

			require.NoError(t, fx.handler.Refresh(c))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body struct {
				Error struct {
					Reason string `json:"reason"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantReason, body.Error.Reason)

			cleared, ok := cookiesByName(rec)[constants.CookieAccessToken]
			assert.Equal(t, tt.wantCleared, ok)
			if ok {
				assert.Empty(t, cleared.Value)
				assert.Negative(t, cleared.MaxAge)
			}
		})
	}
}

func TestAuthHandler_Refresh_NoTokenIsInvalid(t *testing.T) {
	fx := createTestAuthHandler(t)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil), rec)

	require.NoError(t, fx.handler.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"invalid"`)
}

func TestAuthHandler_Logout_ClearsCookies(t *testing.T) {
	fx := createTestAuthHandler(t)
	accountID := uuid.New()
	fx.authUC.EXPECT().Logout(mock.Anything, accountID).Return(nil)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), rec)
	middleware.SetIdentity(c, &entity.Identity{ID: accountID})

	require.NoError(t, fx.handler.Logout(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := cookiesByName(rec)
	require.Contains(t, cookies, constants.CookieAccessToken)
	require.Contains(t, cookies, constants.CookieRefreshToken)
	assert.Equal(t, "/auth", cookies[constants.CookieRefreshToken].Path)
	assert.Negative(t, cookies[constants.CookieRefreshToken].MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	fx := createTestAuthHandler(t)
	identity := &entity.Identity{ID: uuid.New(), Email: "a@example.com", DisplayName: "A"}
	fx.authUC.EXPECT().Me(mock.Anything, identity.ID).Return(identity, nil)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), rec)
	middleware.SetIdentity(c, identity)

	require.NoError(t, fx.handler.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@example.com"`)
}

func TestAuthHandler_Me_Anonymous(t *testing.T) {
	fx := createTestAuthHandler(t)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), rec)

	require.NoError(t, fx.handler.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// extractData returns the raw data field of a success envelope.
func extractData(t *testing.T, rec *httptest.ResponseRecorder) string {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	return string(envelope.Data)
}
