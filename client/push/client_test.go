package push

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"herald/client/session"
	"herald/internal/domain/credential"
	"herald/internal/domain/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	mu          sync.Mutex
	token       string
	next        string
	err         error
	invalidated []string
	listeners   []func(*session.Tokens)
}

func (f *fakeTokens) GetValidToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.token, f.err
}

func (f *fakeTokens) Invalidate(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	f.invalidated = append(f.invalidated, token)
	f.token = f.next
	f.mu.Unlock()

	f.fire()

	return f.next, nil
}

func (f *fakeTokens) OnRefresh(fn func(*session.Tokens)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listeners = append(f.listeners, fn)

	return func() {}
}

// rotate installs token and notifies listeners, as a refresh would.
func (f *fakeTokens) rotate(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()

	f.fire()
}

func (f *fakeTokens) fire() {
	f.mu.Lock()
	listeners := append([]func(*session.Tokens){}, f.listeners...)
	token := f.token
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(&session.Tokens{AccessToken: token})
	}
}

// wsServer greets tokens its verdict accepts and rejects the rest like the
// real endpoint. A verdict returns "" to accept or the connect_error reason.
type wsServer struct {
	*httptest.Server

	verdict func(token string) string
	conns   chan *websocket.Conn

	mu   sync.Mutex
	seen []string
}

func newWSServer(t *testing.T, verdict func(string) string) *wsServer {
	s := &wsServer{verdict: verdict, conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		s.seen = append(s.seen, token)
		s.mu.Unlock()

		if reason := s.verdict(token); reason != "" {
			writeEvent(conn, &event.ConnectError{Reason: reason})
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))

			return
		}

		writeEvent(conn, &event.Connected{AccountID: uuid.New()})
		s.conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)

	return s
}

// acceptOnly accepts valid and reports every other token as expired.
func acceptOnly(valid string) func(string) string {
	return func(token string) string {
		if token == valid {
			return ""
		}

		return reasonExpiredToken
	}
}

func acceptAll(string) string { return "" }

func (s *wsServer) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string{}, s.seen...)
}

func writeEvent(conn *websocket.Conn, p event.Payload) {
	raw, _ := event.Encode(event.New(p))
	_ = conn.WriteMessage(websocket.TextMessage, raw)
}

func newTestClient(srv *wsServer, tokens TokenSource) *Client {
	return New(Config{
		URL:        WebsocketURL(srv.URL),
		Tokens:     tokens,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxBackoff: 50 * time.Millisecond,
	})
}

type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) add(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) types() []event.Type {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]event.Type, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}

	return out
}

func runClient(t *testing.T, client *Client, onEvent func(event.Event)) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, onEvent) }()
	t.Cleanup(cancel)

	return cancel, done
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", WebsocketURL("http://localhost:8080/"))
	assert.Equal(t, "wss://api.example.com/ws", WebsocketURL("https://api.example.com"))
}

func TestClient_DeliversEvents(t *testing.T) {
	srv := newWSServer(t, acceptOnly("good"))
	got := &collector{}
	cancel, done := runClient(t, newTestClient(srv, &fakeTokens{token: "good"}), got.add)

	var conn *websocket.Conn
	select {
	case conn = <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}
	writeEvent(conn, &event.UnreadCount{Count: 2})

	require.Eventually(t, func() bool { return len(got.types()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []event.Type{event.TypeConnected, event.TypeUnreadCount}, got.types())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestClient_RejectedHandshakeRefreshesAndReconnects(t *testing.T) {
	srv := newWSServer(t, acceptOnly("fresh"))
	tokens := &fakeTokens{token: "stale", next: "fresh"}
	got := &collector{}
	runClient(t, newTestClient(srv, tokens), got.add)

	select {
	case <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client never reconnected")
	}

	assert.Equal(t, []string{"stale", "fresh"}, srv.tokens())
	tokens.mu.Lock()
	assert.Equal(t, []string{"stale"}, tokens.invalidated)
	tokens.mu.Unlock()
	assert.NotContains(t, got.types(), event.TypeConnectError, "rejections are not surfaced as events")
}

func TestClient_ReconnectsAfterRefresh(t *testing.T) {
	srv := newWSServer(t, acceptAll)
	tokens := &fakeTokens{token: "first"}
	runClient(t, newTestClient(srv, tokens), func(event.Event) {})

	select {
	case <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}

	tokens.rotate("second")

	select {
	case <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not reconnect after refresh")
	}
	assert.Equal(t, []string{"first", "second"}, srv.tokens())
}

func TestClient_StopsWhenSessionEnds(t *testing.T) {
	srv := newWSServer(t, acceptAll)
	ended := &session.Result{Kind: credential.KindTerminal, Reason: credential.ReasonRotated}
	_, done := runClient(t, newTestClient(srv, &fakeTokens{err: ended}), func(event.Event) {})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, session.ErrSessionEnded)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Empty(t, srv.tokens())
}

func TestClient_UnavailableHandshakeDoesNotRefresh(t *testing.T) {
	var attempts atomic.Int32
	srv := newWSServer(t, func(string) string {
		if attempts.Add(1) < 3 {
			return "unavailable"
		}

		return ""
	})
	tokens := &fakeTokens{token: "good", next: "unused"}
	runClient(t, newTestClient(srv, tokens), func(event.Event) {})

	select {
	case <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}

	assert.Equal(t, []string{"good", "good", "good"}, srv.tokens())
	tokens.mu.Lock()
	assert.Empty(t, tokens.invalidated)
	tokens.mu.Unlock()
}

func TestClient_InvalidHandshakeWaitsForRefresh(t *testing.T) {
	srv := newWSServer(t, func(token string) string {
		if token == "fresh" {
			return ""
		}

		return "invalid_token"
	})
	tokens := &fakeTokens{token: "bad"}
	client := New(Config{
		URL:        WebsocketURL(srv.URL),
		Tokens:     tokens,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxBackoff: time.Minute,
	})
	runClient(t, client, func(event.Event) {})

	require.Eventually(t, func() bool { return len(srv.tokens()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	tokens.rotate("fresh")

	select {
	case <-srv.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not reconnect after refresh")
	}
	tokens.mu.Lock()
	assert.Empty(t, tokens.invalidated)
	tokens.mu.Unlock()
}
