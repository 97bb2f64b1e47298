package socket

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"herald/config"
	"herald/internal/domain/constants"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/event"
	"herald/internal/errors"
	"herald/internal/infra/realtime"
	mockUsecase "herald/internal/mocks/usecase"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

type socketFixtures struct {
	server   *httptest.Server
	url      string
	hub      *realtime.Hub
	resolver *mockUsecase.MockIdentityResolver
}

func newSocketServer(t *testing.T, presence bool) socketFixtures {
	cfg := &config.Config{Realtime: &config.RealtimeConfig{
		SendBuffer:       16,
		HandshakeTimeout: 200 * time.Millisecond,
		MaxMessageSize:   4096,
		Presence:         presence,
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lc := fxtest.NewLifecycle(t)
	resolver := mockUsecase.NewMockIdentityResolver(t)

	hub := realtime.NewHub(realtime.HubParams{Lc: lc, Config: cfg, Logger: logger})
	handler := NewHandler(HandlerParams{
		Authenticator: NewAuthenticator(AuthenticatorParams{Resolver: resolver, Config: cfg, Logger: logger}),
		Hub:           hub,
		Config:        cfg,
		Logger:        logger,
	})

	e := echo.New()
	e.GET("/ws", handler.Connect)
	server := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return socketFixtures{
		server:   server,
		url:      "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
		hub:      hub,
		resolver: resolver,
	}
}

func (f socketFixtures) dial(t *testing.T, header http.Header) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func readEvent(t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	e, err := event.Decode(payload)
	require.NoError(t, err)

	return e
}

// expectRejected reads connect_error with reason and then the matching close frame.
func expectRejected(t *testing.T, conn *websocket.Conn, reason string) {
	t.Helper()
	e := readEvent(t, conn)
	require.Equal(t, event.TypeConnectError, e.Type)
	assert.Equal(t, reason, e.Data.(*event.ConnectError).Reason)

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
	code := websocket.ClosePolicyViolation
	if reason == ReasonUnavailable {
		code = websocket.CloseTryAgainLater
	}
	assert.Equal(t, code, closeErr.Code)
}

func TestConnect_BearerHeader(t *testing.T) {
	f := newSocketServer(t, false)
	accountID := uuid.New()
	f.resolver.EXPECT().Authenticate(mock.Anything, "good").Return(&entity.Identity{ID: accountID}, nil)

	conn := f.dial(t, bearer("good"))

	e := readEvent(t, conn)
	require.Equal(t, event.TypeConnected, e.Type)
	assert.Equal(t, accountID, e.Data.(*event.Connected).AccountID)
	assert.Eventually(t, func() bool { return f.hub.Online(accountID) }, time.Second, 10*time.Millisecond)
}

func TestConnect_FirstFrame(t *testing.T) {
	f := newSocketServer(t, false)
	accountID := uuid.New()
	f.resolver.EXPECT().Authenticate(mock.Anything, "framed").Return(&entity.Identity{ID: accountID}, nil)

	conn := f.dial(t, nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"auth":{"token":"framed"}}`)))

	e := readEvent(t, conn)
	require.Equal(t, event.TypeConnected, e.Type)
	assert.Equal(t, accountID, e.Data.(*event.Connected).AccountID)
}

func TestConnect_NoTokenTimesOut(t *testing.T) {
	f := newSocketServer(t, false)

	conn := f.dial(t, nil)

	expectRejected(t, conn, ReasonMissingToken)
	assert.Zero(t, f.hub.ConnectionCount())
}

func TestConnect_CookieIsIgnored(t *testing.T) {
	f := newSocketServer(t, false)

	header := http.Header{"Cookie": []string{constants.CookieAccessToken + "=good"}}
	conn := f.dial(t, header)

	expectRejected(t, conn, ReasonMissingToken)
}

func TestConnect_FrameWithoutToken(t *testing.T) {
	f := newSocketServer(t, false)

	conn := f.dial(t, nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`)))

	expectRejected(t, conn, ReasonMissingToken)
}

func TestConnect_RejectedTokens(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{name: "expired", err: errors.Wrap(domainerrors.ErrTokenExpired, "exp"), reason: ReasonExpiredToken},
		{name: "invalid", err: errors.Wrap(domainerrors.ErrTokenInvalid, "sig"), reason: ReasonInvalidToken},
		{name: "lookup failure", err: errors.New("db down"), reason: ReasonUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSocketServer(t, false)
			f.resolver.EXPECT().Authenticate(mock.Anything, "tok").Return(nil, tt.err)

			conn := f.dial(t, bearer("tok"))

			expectRejected(t, conn, tt.reason)
			assert.Zero(t, f.hub.ConnectionCount())
		})
	}
}

func TestConnect_RoomIsolation(t *testing.T) {
	f := newSocketServer(t, false)
	alice, bob := uuid.New(), uuid.New()
	f.resolver.EXPECT().Authenticate(mock.Anything, "alice").Return(&entity.Identity{ID: alice}, nil)
	f.resolver.EXPECT().Authenticate(mock.Anything, "bob").Return(&entity.Identity{ID: bob}, nil)

	aliceConn := f.dial(t, bearer("alice"))
	bobConn := f.dial(t, bearer("bob"))
	readEvent(t, aliceConn)
	readEvent(t, bobConn)
	require.Eventually(t, func() bool { return f.hub.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)

	delivered := f.hub.DeliverToAccount(alice, event.New(&event.UnreadCount{Count: 4}))
	require.Equal(t, 1, delivered)

	e := readEvent(t, aliceConn)
	assert.Equal(t, int64(4), e.Data.(*event.UnreadCount).Count)

	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := bobConn.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "bob must not receive alice's events")
}

func TestConnect_PresenceAnnouncedToOthers(t *testing.T) {
	f := newSocketServer(t, true)
	alice, bob := uuid.New(), uuid.New()
	f.resolver.EXPECT().Authenticate(mock.Anything, "alice").Return(&entity.Identity{ID: alice}, nil)
	f.resolver.EXPECT().Authenticate(mock.Anything, "bob").Return(&entity.Identity{ID: bob}, nil)

	aliceConn := f.dial(t, bearer("alice"))
	readEvent(t, aliceConn)
	require.Eventually(t, func() bool { return f.hub.Online(alice) }, time.Second, 10*time.Millisecond)

	bobConn := f.dial(t, bearer("bob"))
	readEvent(t, bobConn)

	online := readEvent(t, aliceConn)
	require.Equal(t, event.TypePresenceChanged, online.Type)
	assert.Equal(t, bob, online.Data.(*event.PresenceChanged).AccountID)
	assert.Equal(t, event.PresenceOnline, online.Data.(*event.PresenceChanged).Status)

	require.NoError(t, bobConn.Close())

	offline := readEvent(t, aliceConn)
	require.Equal(t, event.TypePresenceChanged, offline.Type)
	assert.Equal(t, event.PresenceOffline, offline.Data.(*event.PresenceChanged).Status)
}
