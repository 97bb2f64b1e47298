// Package push keeps a websocket open to the server and hands every decoded
// event to the caller. It reconnects with a fresh token after each refresh.
package push

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"herald/client/session"
	"herald/internal/domain/credential"
	"herald/internal/domain/event"
	"herald/internal/errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// reasonExpiredToken is the connect_error reason that a refresh can cure.
const reasonExpiredToken = "expired_token"

// HandshakeError is a connect_error received in place of the greeting.
type HandshakeError struct {
	Reason string
}

func (e *HandshakeError) Error() string {
	return "handshake rejected: " + e.Reason
}

// Unwrap lets errors.Is match credential.ErrHandshakeRejected.
func (e *HandshakeError) Unwrap() error {
	return credential.ErrHandshakeRejected
}

// TokenSource is the part of the session coordinator the push client needs.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context, token string) (string, error)
	OnRefresh(fn func(*session.Tokens)) func()
}

// Config configures a Client. URL is the websocket endpoint, e.g. ws://host/ws.
type Config struct {
	URL    string
	Tokens TokenSource
	Dialer *websocket.Dialer
	Logger *slog.Logger

	// MaxBackoff caps the wait between reconnects.
	MaxBackoff time.Duration
}

type Client struct {
	url        string
	tokens     TokenSource
	dialer     *websocket.Dialer
	logger     *slog.Logger
	maxBackoff time.Duration
}

func New(cfg Config) *Client {
	c := &Client{
		url:        cfg.URL,
		tokens:     cfg.Tokens,
		dialer:     cfg.Dialer,
		logger:     cfg.Logger,
		maxBackoff: cfg.MaxBackoff,
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = 30 * time.Second
	}

	return c
}

// WebsocketURL turns an http(s) base URL into the ws(s) endpoint.
func WebsocketURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/") + "/ws"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}

// Run delivers events to onEvent until ctx ends or the session ends.
// It returns ctx.Err() or the terminal session error.
func (c *Client) Run(ctx context.Context, onEvent func(event.Event)) error {
	refreshed := make(chan struct{}, 1)
	stop := c.tokens.OnRefresh(func(*session.Tokens) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})
	defer stop()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = c.maxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		token, err := c.tokens.GetValidToken(ctx)
		if err != nil {
			if errors.Is(err, session.ErrSessionEnded) || ctx.Err() != nil {
				return err
			}

			if !sleep(ctx, bo.NextBackOff()) {
				return errors.WithStack(ctx.Err())
			}

			continue
		}

		// Any refresh so far is already reflected in token.
		select {
		case <-refreshed:
		default:
		}

		connected, err := c.session(ctx, token, refreshed, onEvent)
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}
		if connected {
			bo.Reset()
		}

		// Only an expired token is worth a refresh. Any other rejection waits
		// for the next refresh or the backoff, so a flaky handshake never ends
		// the session.
		var rejected *HandshakeError
		if errors.As(err, &rejected) {
			if rejected.Reason == reasonExpiredToken {
				c.logger.Info("Handshake rejected, refreshing", slog.String("reason", rejected.Reason))
				if _, err := c.tokens.Invalidate(ctx, token); errors.Is(err, session.ErrSessionEnded) {
					return err
				}
				if !sleep(ctx, bo.NextBackOff()) {
					return errors.WithStack(ctx.Err())
				}

				continue
			}

			c.logger.Warn("Handshake rejected", slog.String("reason", rejected.Reason))
			if !wait(ctx, bo.NextBackOff(), refreshed) {
				return errors.WithStack(ctx.Err())
			}

			continue
		}
		if errors.Is(err, errRefreshed) {
			continue
		}

		c.logger.Warn("Push connection lost", slog.Any("error", err))
		if !sleep(ctx, bo.NextBackOff()) {
			return errors.WithStack(ctx.Err())
		}
	}
}

var errRefreshed = errors.New("token refreshed")

// session runs one connection. It reports whether the handshake succeeded.
func (c *Client) session(ctx context.Context, token string, refreshed <-chan struct{}, onEvent func(event.Event)) (bool, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return false, errors.Wrap(err, "dial push endpoint")
	}
	defer conn.Close()

	first, err := readEvent(conn)
	if err != nil {
		return false, err
	}
	if rejection, ok := first.Data.(*event.ConnectError); ok {
		return false, &HandshakeError{Reason: rejection.Reason}
	}
	onEvent(first)

	done := make(chan struct{})
	defer close(done)
	reason := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
			reason <- ctx.Err()
		case <-refreshed:
			reason <- errRefreshed
		case <-done:
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		e, err := readEvent(conn)
		if err != nil {
			select {
			case cause := <-reason:
				return true, cause
			default:
				return true, err
			}
		}
		onEvent(e)
	}
}

func readEvent(conn *websocket.Conn) (event.Event, error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return event.Event{}, errors.Wrap(err, "read push frame")
		}

		e, err := event.Decode(raw)
		if errors.Is(err, event.ErrUnknownType) {
			continue
		}
		if err != nil {
			return event.Event{}, err
		}

		return e, nil
	}
}

// wait is sleep cut short by a token refresh.
func wait(ctx context.Context, d time.Duration, refreshed <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-refreshed:
		return true
	case <-t.C:
		return true
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
