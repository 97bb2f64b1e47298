package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"herald/config"
	"herald/internal/delivery/api/response"
	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/constants"
	"herald/internal/domain/credential"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/errors"
	"herald/internal/infra/metrics"
	"herald/internal/usecase"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	keyAccountID = "accountID"
	keyIdentity  = "identity"

	bearerPrefix = "Bearer "
)

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Resolver usecase.IdentityResolver
	Config   *config.Config
	Logger   *slog.Logger
}

// AuthMiddleware rejects requests without a valid access token and attaches
// the resolved identity for downstream handlers.
type AuthMiddleware struct {
	resolver       usecase.IdentityResolver
	allowBodyToken bool
	logger         *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	allowBody := params.Config.Auth != nil && params.Config.Auth.AllowBodyToken

	return &AuthMiddleware{
		resolver:       params.Resolver,
		allowBodyToken: allowBody,
		logger:         params.Logger,
	}
}

// Authenticate looks for the access token in the accessToken cookie, then the
// Authorization header, then (when enabled) the JSON body. The first carrier
// present wins even if its token is bad.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := m.extractToken(c)
		if token == "" {
			return m.reject(c, errors.WithStack(domainerrors.ErrTokenMissing))
		}

		identity, err := m.resolver.Authenticate(c.Request().Context(), token)
		if err != nil {
			return m.reject(c, err)
		}

		SetIdentity(c, identity)

		return next(c)
	}
}

func (m *AuthMiddleware) reject(c echo.Context, err error) error {
	var appErr *domainerrors.BaseError
	if !errors.As(err, &appErr) || appErr.Reason() == "" {
		// Lookup failures are not credential failures.
		return errors.WithStack(err)
	}

	metrics.RecordCredentialFailure("http", appErr.Reason())
	if appErr.Reason() != string(credential.ReasonMissing) {
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).Debug("Rejected access token",
			slog.String("reason", appErr.Reason()),
			slog.Any("error", err),
		)
	}

	return response.AppError(c, appErr)
}

func (m *AuthMiddleware) extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(constants.CookieAccessToken); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, bearerPrefix); ok {
			return strings.TrimSpace(token)
		}
		// A malformed header is still the carrier; return it so the resolver rejects it as invalid.
		return header
	}

	if m.allowBodyToken {
		return bodyToken(c)
	}

	return ""
}

// bodyToken peeks at a JSON body for accessToken and restores the body for the handler.
func bodyToken(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}

	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var carrier struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(raw, &carrier); err != nil {
		return ""
	}

	return carrier.AccessToken
}

// SetIdentity attaches identity to the echo context and tags the
// request-scoped logger with the account id.
func SetIdentity(c echo.Context, identity *entity.Identity) {
	c.Set(keyAccountID, identity.ID)
	c.Set(keyIdentity, identity)

	ctx := c.Request().Context()
	if logger := deliverycontext.GetLogger(ctx); logger != nil {
		ctx = deliverycontext.WithLogger(ctx, logger.With(slog.String("account_id", identity.ID.String())))
		c.SetRequest(c.Request().WithContext(ctx))
	}
}

// GetAccountID returns the authenticated account id set by Authenticate.
func GetAccountID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(keyAccountID).(uuid.UUID)

	return id, ok
}

// GetIdentity returns the authenticated identity set by Authenticate.
func GetIdentity(c echo.Context) (*entity.Identity, bool) {
	identity, ok := c.Get(keyIdentity).(*entity.Identity)

	return identity, ok && identity != nil
}
