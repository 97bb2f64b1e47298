// Package handler contains the worker's push endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"herald/config"
	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/service"
	"herald/internal/errors"
	"herald/internal/infra/pubsub"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// tokenValidator checks a Google-signed ID token for audience.
type tokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// RelayHandler receives relay envelopes pushed by peers or by a Pub/Sub push
// subscription and hands them to the local sink.
type RelayHandler struct {
	verifyPushAuth bool
	validate       tokenValidator
	sink           service.RelaySink
	logger         *slog.Logger
}

// RelayHandlerParams holds dependencies for the RelayHandler
type RelayHandlerParams struct {
	fx.In

	Config *config.Config
	Sink   service.RelaySink
	Logger *slog.Logger
}

// NewRelayHandler creates a new relay push handler
func NewRelayHandler(params RelayHandlerParams) *RelayHandler {
	verify := params.Config.Relay != nil && params.Config.Relay.VerifyPushAuth

	return &RelayHandler{
		verifyPushAuth: verify,
		validate:       idtoken.Validate,
		sink:           params.Sink,
		logger:         params.Logger,
	}
}

// HandlePush accepts one push message. Malformed messages are acknowledged
// with 400 so the broker stops redelivering them.
func (h *RelayHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := h.verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg pubsub.PushMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	envelope, err := pubsub.DecodePushMessage(&pushMsg)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode relay envelope", slog.Any("error", err))

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := extractRequestID(ctx, envelope)
	reqLogger := h.logger.With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	if err := h.sink.Accept(ctx, envelope); err != nil {
		reqLogger.Warn("[Worker] Dropping relay envelope",
			slog.String("origin", envelope.Origin),
			slog.String("account_id", envelope.AccountID.String()),
			slog.Any("error", err),
		)

		return c.NoContent(http.StatusBadRequest)
	}

	return c.NoContent(http.StatusOK)
}

// extractRequestID prefers the envelope, then the X-Request-Id of the push
// request, and generates one as a last resort.
func extractRequestID(ctx context.Context, envelope *service.RelayEnvelope) string {
	if envelope.RequestID != "" {
		return envelope.RequestID
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func (h *RelayHandler) verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return errors.New("invalid authorization header format")
	}

	// The audience is the URL of this endpoint.
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := scheme + "://" + req.Host + req.URL.Path

	payload, err := h.validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
