package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"herald/internal/domain/event"
	"herald/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var clientIDCounter atomic.Uint64

// Client is one authenticated websocket connection. Its account binding is
// fixed at construction and is the only state it carries.
type Client struct {
	id        uint64
	accountID uuid.UUID
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, accountID uuid.UUID, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}

	return &Client{
		id:        clientIDCounter.Add(1),
		accountID: accountID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

// ID returns the process-unique connection id.
func (c *Client) ID() uint64 {
	return c.id
}

// AccountID returns the account the connection authenticated as.
func (c *Client) AccountID() uuid.UUID {
	return c.accountID
}

// Done is closed once the connection is shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// enqueue never blocks: a full buffer drops the event, which clients recover
// from on their next pull.
func (c *Client) enqueue(eventType event.Type, payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		metrics.RealtimeEventsSent.WithLabelValues(string(eventType)).Inc()

		return true
	default:
		metrics.RealtimeEventsDropped.WithLabelValues(string(eventType)).Inc()
		c.hub.logger.Warn("Send buffer full, dropping event",
			slog.String("account_id", c.accountID.String()),
			slog.Uint64("client_id", c.id),
			slog.String("type", string(eventType)),
		)

		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) start(readLimit int64) {
	go c.writePump()
	go c.readPump(readLimit)
}

// readPump only watches for liveness and close; the channel is server-push.
func (c *Client) readPump(readLimit int64) {
	defer func() {
		c.hub.leave(c)
		c.shutdown()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("Unexpected websocket close",
					slog.Any("error", err),
					slog.Uint64("client_id", c.id),
				)
			}

			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

			return

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
