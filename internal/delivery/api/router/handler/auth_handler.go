// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"herald/config"
	"herald/internal/delivery/api/middleware"
	"herald/internal/delivery/api/response"
	"herald/internal/domain/constants"
	"herald/internal/domain/credential"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/errors"
	"herald/internal/infra/metrics"
	"herald/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Config *config.Config
	Logger *slog.Logger
}

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	authUC  usecase.AuthUsecase
	cookies tokenCookies
	logger  *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:  params.AuthUC,
		cookies: newTokenCookies(params.Config),
		logger:  params.Logger,
	}
}

// RefreshRequest carries the refresh token for clients that cannot send cookies.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register handles account registration.
func (h *AuthHandler) Register(c echo.Context) error {
	var input usecase.RegisterInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.authUC.Register(c.Request().Context(), &input)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	metrics.TokenIssued.WithLabelValues("register").Inc()
	h.cookies.set(c, output.Tokens)

	return response.Success(c, http.StatusCreated, output)
}

// Login sets both token cookies and returns the pair in the body.
func (h *AuthHandler) Login(c echo.Context) error {
	var input usecase.LoginInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.authUC.Login(c.Request().Context(), &input)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	metrics.TokenIssued.WithLabelValues("login").Inc()
	h.cookies.set(c, output.Tokens)

	return response.Success(c, http.StatusOK, output)
}

// Refresh rotates the refresh token found in the refreshToken cookie or the
// refreshToken body field.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(constants.CookieRefreshToken); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req RefreshRequest
		if err := c.Bind(&req); err != nil {
			return response.BindingError(c, "INVALID_INPUT", "Invalid refresh token input")
		}
		token = req.RefreshToken
	}
	// The refresh vocabulary is expired, invalid or rotated; no token is invalid.
	if token == "" {
		metrics.RecordCredentialFailure("refresh", string(credential.ReasonMalformed))

		return response.HandleAppError(c, domainerrors.ErrTokenInvalid)
	}

	pair, err := h.authUC.Refresh(c.Request().Context(), token)
	if err != nil {
		var appErr *domainerrors.BaseError
		if errors.As(err, &appErr) && appErr.Reason() != "" {
			metrics.RecordCredentialFailure("refresh", appErr.Reason())
			if appErr.Reason() == string(credential.ReasonRotated) {
				h.cookies.clear(c)
			}
		}

		return response.HandleAppError(c, err)
	}

	metrics.TokenIssued.WithLabelValues("refresh").Inc()
	h.cookies.set(c, pair)

	return response.Success(c, http.StatusOK, pair)
}

// Logout revokes the account's refresh token and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrTokenMissing)
	}

	if err := h.authUC.Logout(c.Request().Context(), accountID); err != nil {
		return response.HandleAppError(c, err)
	}

	h.cookies.clear(c)

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	caller, ok := middleware.GetIdentity(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrTokenMissing)
	}

	// The guard's identity may be minutes old; reload for current profile fields.
	identity, err := h.authUC.Me(c.Request().Context(), caller.ID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, identity)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
