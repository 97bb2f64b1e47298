package socket

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"herald/config"
	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/credential"
	"herald/internal/domain/event"
	"herald/internal/infra/metrics"
	"herald/internal/infra/realtime"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const closeWait = time.Second

// HandlerParams holds dependencies for Handler, injected by Fx.
type HandlerParams struct {
	fx.In

	Authenticator *Authenticator
	Hub           *realtime.Hub
	Config        *config.Config
	Logger        *slog.Logger
}

// Handler serves GET /ws.
type Handler struct {
	upgrader websocket.Upgrader
	auth     *Authenticator
	hub      *realtime.Hub
	logger   *slog.Logger
}

// NewHandler is the constructor for Handler.
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(params.Config.Realtime.AllowedOrigins),
		},
		auth:   params.Authenticator,
		hub:    params.Hub,
		logger: params.Logger,
	}
}

// checkOrigin returns nil (gorilla's same-host check) when no origins are
// configured, and an allow-list check otherwise. "*" allows any origin.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		return origin == "" || slices.Contains(allowed, origin)
	}
}

// Connect upgrades the request, authenticates it and hands the connection to
// the hub. Nothing but the handshake runs before the connection joins its room.
func (h *Handler) Connect(c echo.Context) error {
	req := c.Request()
	logger := deliverycontext.GetLoggerOrDefault(req.Context(), h.logger)

	conn, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logger.Debug("Websocket upgrade failed", slog.Any("error", err))

		return nil
	}

	identity, err := h.auth.Authenticate(req.Context(), req, conn)
	if err != nil {
		reason := ReasonInvalidToken
		if r, ok := credential.ReasonOf(err); ok {
			reason = string(r)
		}
		metrics.RecordCredentialFailure("socket", reason)
		logger.Debug("Websocket handshake rejected", slog.String("reason", reason), slog.Any("error", err))
		reject(conn, reason)

		return nil
	}

	greeting, err := event.Encode(event.New(&event.Connected{AccountID: identity.ID}))
	if err != nil {
		logger.Error("Failed to encode greeting", slog.Any("error", err))
		closeWith(conn, websocket.CloseInternalServerErr, "")

		return nil
	}

	if _, ok := h.hub.Attach(conn, identity.ID, greeting); !ok {
		closeWith(conn, websocket.CloseGoingAway, "shutting down")

		return nil
	}

	logger.Debug("Websocket connected", slog.String("account_id", identity.ID.String()))

	return nil
}

// reject sends connect_error and closes with a policy violation, or with
// try-again-later when the token could not be checked.
func reject(conn *websocket.Conn, reason string) {
	payload, err := event.Encode(event.New(&event.ConnectError{Reason: reason}))
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(closeWait))
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}

	code := websocket.ClosePolicyViolation
	if reason == ReasonUnavailable {
		code = websocket.CloseTryAgainLater
	}
	closeWith(conn, code, reason)
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(closeWait))
	_ = conn.Close()
}
