// Package realtime owns live websocket connections and their account rooms.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"herald/config"
	"herald/internal/domain/event"
	"herald/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/fx"
)

// HubParams holds dependencies for Hub, injected by Fx.
type HubParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// Hub is the connection manager. Each account has one room holding every
// connection authenticated as that account; rooms exist only while non-empty.
type Hub struct {
	logger *slog.Logger
	cfg    config.RealtimeConfig

	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]struct{}
	closed bool
}

// NewHub creates the hub and closes every connection when the app stops.
func NewHub(params HubParams) *Hub {
	h := newHub(params.Logger, *params.Config.Realtime)

	params.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			h.Close()

			return nil
		},
	})

	return h
}

func newHub(logger *slog.Logger, cfg config.RealtimeConfig) *Hub {
	return &Hub{
		logger: logger.With(slog.String("component", "realtime_hub")),
		cfg:    cfg,
		rooms:  make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Attach binds an authenticated connection to accountID's room. greeting is
// queued ahead of any room traffic. It reports false when the hub is closed,
// in which case the caller still owns conn.
func (h *Hub) Attach(conn *websocket.Conn, accountID uuid.UUID, greeting []byte) (*Client, bool) {
	c := newClient(h, conn, accountID, h.cfg.SendBuffer)
	if greeting != nil {
		c.enqueue(event.TypeConnected, greeting)
	}

	if !h.join(c) {
		return nil, false
	}
	c.start(h.cfg.MaxMessageSize)

	return c, true
}

// join adds c to its account room. It reports false when the hub is closed.
func (h *Hub) join(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()

		return false
	}

	room, ok := h.rooms[c.accountID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.accountID] = room
	}
	room[c] = struct{}{}
	first := len(room) == 1
	h.mu.Unlock()

	metrics.RealtimeConnections.Inc()
	h.logger.Debug("Connection joined room",
		slog.String("account_id", c.accountID.String()),
		slog.Uint64("client_id", c.id),
	)

	if first {
		h.announce(c.accountID, event.PresenceOnline)
	}

	return true
}

// leave removes c from its room. Safe to call more than once.
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.accountID]
	if !ok {
		h.mu.Unlock()

		return
	}
	if _, member := room[c]; !member {
		h.mu.Unlock()

		return
	}
	delete(room, c)
	last := len(room) == 0
	if last {
		delete(h.rooms, c.accountID)
	}
	h.mu.Unlock()

	metrics.RealtimeConnections.Dec()
	h.logger.Debug("Connection left room",
		slog.String("account_id", c.accountID.String()),
		slog.Uint64("client_id", c.id),
	)

	if last {
		h.announce(c.accountID, event.PresenceOffline)
	}
}

// DeliverToAccount queues e on every connection in accountID's room and
// returns how many accepted it. Slow connections drop the event.
func (h *Hub) DeliverToAccount(accountID uuid.UUID, e event.Event) int {
	payload, err := event.Encode(e)
	if err != nil {
		h.logger.Error("Failed to encode event", slog.Any("error", err), slog.String("type", string(e.Type)))

		return 0
	}

	return h.DeliverRaw(accountID, e.Type, payload)
}

// DeliverRaw is DeliverToAccount for an already encoded event.
func (h *Hub) DeliverRaw(accountID uuid.UUID, eventType event.Type, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[accountID]))
	for c := range h.rooms[accountID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(eventType, payload) {
			delivered++
		}
	}

	return delivered
}

// announce tells every connection outside accountID's room about a presence change.
func (h *Hub) announce(accountID uuid.UUID, status event.PresenceStatus) {
	if !h.cfg.Presence {
		return
	}

	e := event.New(&event.PresenceChanged{AccountID: accountID, Status: status})
	payload, err := event.Encode(e)
	if err != nil {
		h.logger.Error("Failed to encode presence", slog.Any("error", err))

		return
	}

	h.mu.RLock()
	var targets []*Client
	for id, room := range h.rooms {
		if id == accountID {
			continue
		}
		for c := range room {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(e.Type, payload)
	}
}

// Online reports whether accountID has at least one live connection here.
func (h *Hub) Online(accountID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[accountID]) > 0
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}

	return n
}

// Close disconnects everyone and refuses new joins.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.rooms = make(map[uuid.UUID]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		metrics.RealtimeConnections.Dec()
		c.shutdown()
	}
}
