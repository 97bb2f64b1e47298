package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"herald/config"
	"herald/internal/domain/event"
	"herald/internal/domain/service"
	"herald/internal/errors"
	"herald/internal/infra/pubsub"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

type recordingSink struct {
	mu        sync.Mutex
	envelopes []*service.RelayEnvelope
	err       error
}

func (s *recordingSink) Accept(_ context.Context, envelope *service.RelayEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, envelope)

	return s.err
}

func newRelayHandler(sink service.RelaySink, verify bool) *RelayHandler {
	return NewRelayHandler(RelayHandlerParams{
		Config: &config.Config{Relay: &config.RelayConfig{VerifyPushAuth: verify}},
		Sink:   sink,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func pushBody(t *testing.T, envelope *service.RelayEnvelope) []byte {
	data, err := json.Marshal(envelope)
	require.NoError(t, err)

	var msg pubsub.PushMessage
	msg.Message.Data = base64.StdEncoding.EncodeToString(data)
	msg.Message.Attributes = map[string]string{"request_id": "req-7"}
	msg.Subscription = "projects/p/subscriptions/s"
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	return body
}

func post(h *RelayHandler, body []byte, header http.Header) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/push", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	_ = h.HandlePush(e.NewContext(req, rec))

	return rec
}

func TestHandlePush_DeliversEnvelope(t *testing.T) {
	sink := &recordingSink{}
	h := newRelayHandler(sink, false)
	payload, err := event.Encode(event.New(&event.UnreadCount{Count: 2}))
	require.NoError(t, err)
	envelope := &service.RelayEnvelope{Origin: "peer", AccountID: uuid.New(), Event: payload}

	rec := post(h, pushBody(t, envelope), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sink.envelopes, 1)
	assert.Equal(t, envelope.AccountID, sink.envelopes[0].AccountID)
	assert.Equal(t, "req-7", sink.envelopes[0].RequestID)
}

func TestHandlePush_MalformedData(t *testing.T) {
	sink := &recordingSink{}
	h := newRelayHandler(sink, false)

	rec := post(h, []byte(`{"message":{"data":"%%%not-base64"}}`), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sink.envelopes)
}

func TestHandlePush_SinkRejects(t *testing.T) {
	sink := &recordingSink{err: event.ErrUnknownType}
	h := newRelayHandler(sink, false)
	envelope := &service.RelayEnvelope{Origin: "peer", AccountID: uuid.New(), Event: []byte(`{"type":"nope"}`)}

	rec := post(h, pushBody(t, envelope), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePush_VerifiesGoogleToken(t *testing.T) {
	envelope := &service.RelayEnvelope{Origin: "peer", AccountID: uuid.New(), Event: []byte(`{"type":"notification.unread_count","data":{"count":1}}`)}

	tests := []struct {
		name     string
		header   http.Header
		validate tokenValidator
		wantCode int
	}{
		{
			name:     "missing header",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "rejected token",
			header: http.Header{"Authorization": []string{"Bearer bad"}},
			validate: func(context.Context, string, string) (*idtoken.Payload, error) {
				return nil, errors.New("signature")
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "wrong issuer",
			header: http.Header{"Authorization": []string{"Bearer t"}},
			validate: func(context.Context, string, string) (*idtoken.Payload, error) {
				return &idtoken.Payload{Issuer: "evil.example.com"}, nil
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "valid token",
			header: http.Header{"Authorization": []string{"Bearer t"}},
			validate: func(_ context.Context, _, audience string) (*idtoken.Payload, error) {
				if audience != "http://example.com/push" {
					return nil, errors.Errorf("audience %s", audience)
				}

				return &idtoken.Payload{Issuer: "https://accounts.google.com"}, nil
			},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRelayHandler(&recordingSink{}, true)
			if tt.validate != nil {
				h.validate = tt.validate
			}

			rec := post(h, pushBody(t, envelope), tt.header)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
