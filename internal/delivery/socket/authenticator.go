// Package socket upgrades /ws requests and authenticates them before any
// event flows.
package socket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"herald/config"
	"herald/internal/domain/credential"
	"herald/internal/domain/entity"
	"herald/internal/errors"
	"herald/internal/usecase"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/fx"
)

// Wire reasons sent in connect_error.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonExpiredToken = "expired_token"
	// ReasonUnavailable means the token could not be checked at all, e.g. the
	// account store is down. Clients should retry later without refreshing.
	ReasonUnavailable = "unavailable"
)

// handshakeFrame is the optional first frame {"auth":{"token":"..."}}.
type handshakeFrame struct {
	Auth *struct {
		Token string `json:"token"`
	} `json:"auth"`
}

// AuthenticatorParams holds dependencies for Authenticator, injected by Fx.
type AuthenticatorParams struct {
	fx.In

	Resolver usecase.IdentityResolver
	Config   *config.Config
	Logger   *slog.Logger
}

// Authenticator resolves the identity of a freshly upgraded connection.
type Authenticator struct {
	resolver usecase.IdentityResolver
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAuthenticator is the constructor for Authenticator.
func NewAuthenticator(params AuthenticatorParams) *Authenticator {
	return &Authenticator{
		resolver: params.Resolver,
		timeout:  params.Config.Realtime.HandshakeTimeout,
		logger:   params.Logger,
	}
}

// Authenticate takes the token from the upgrade request's Bearer header or,
// failing that, from the first frame read within the handshake timeout.
// Cookies are never consulted. Failures are *credential.Failure values whose
// reason is one of the connect_error reasons.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request, conn *websocket.Conn) (*entity.Identity, error) {
	token, ok := bearerToken(r)
	if !ok {
		var err error
		token, err = a.readHandshake(conn)
		if err != nil {
			return nil, err
		}
	}

	identity, err := a.resolver.Authenticate(ctx, token)
	if err != nil {
		return nil, credential.New(credential.Reason(wireReason(err)), err)
	}

	return identity, nil
}

func (a *Authenticator) readHandshake(conn *websocket.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(a.timeout)); err != nil {
		return "", errors.WithStack(err)
	}
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return "", credential.New(ReasonMissingToken, errors.Wrap(err, "no handshake frame"))
	}

	var frame handshakeFrame
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Auth == nil || frame.Auth.Token == "" {
		return "", credential.New(ReasonMissingToken, errors.New("handshake frame without auth.token"))
	}

	return frame.Auth.Token, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}

// wireReason maps a resolver error to a connect_error reason.
func wireReason(err error) string {
	reason, ok := credential.ReasonOf(err)
	if !ok {
		var carrier interface{ Reason() string }
		if !errors.As(err, &carrier) {
			return ReasonUnavailable
		}
		reason = credential.Reason(carrier.Reason())
	}

	switch reason {
	case credential.ReasonMissing:
		return ReasonMissingToken
	case credential.ReasonExpired:
		return ReasonExpiredToken
	default:
		return ReasonInvalidToken
	}
}
