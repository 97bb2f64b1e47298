// Package event defines the closed set of realtime events pushed to clients.
// Every event is a hint; clients re-validate against the pull API.
package event

import (
	"time"

	"herald/internal/domain/entity"
	"herald/internal/errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Type tags an event on the wire.
type Type string

const (
	TypeConnected           Type = "connected"
	TypeConnectError        Type = "connect_error"
	TypeNotificationNew     Type = "notification.new"
	TypeNotificationRead    Type = "notification.read"
	TypeNotificationAllRead Type = "notification.all_read"
	TypeUnreadCount         Type = "notification.unread_count"
	TypePresenceChanged     Type = "presence.changed"
)

// ErrUnknownType is returned by Decode for tags outside the vocabulary.
var ErrUnknownType = errors.New("unknown event type")

// Payload is implemented only by the payload structs below, which keeps the set closed.
type Payload interface {
	eventType() Type
}

// Connected confirms a successful handshake.
type Connected struct {
	AccountID uuid.UUID `json:"account_id"`
}

// ConnectError rejects a handshake. Reason is missing_token, invalid_token,
// expired_token or unavailable.
type ConnectError struct {
	Reason string `json:"reason"`
}

// NotificationNew carries a freshly created notification.
type NotificationNew struct {
	Notification *entity.Notification `json:"notification"`
}

// NotificationRead reports one notification flipping to read.
type NotificationRead struct {
	ID     uuid.UUID `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

// NotificationAllRead reports a bulk mark-read; Count is how many flipped.
type NotificationAllRead struct {
	ReadAt time.Time `json:"read_at"`
	Count  int64     `json:"count"`
}

// UnreadCount is the recipient's unread total right after a change.
type UnreadCount struct {
	Count int64 `json:"count"`
}

// PresenceStatus is online or offline.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// PresenceChanged announces an account coming online or going offline.
type PresenceChanged struct {
	AccountID uuid.UUID      `json:"account_id"`
	Status    PresenceStatus `json:"status"`
}

func (*Connected) eventType() Type           { return TypeConnected }
func (*ConnectError) eventType() Type        { return TypeConnectError }
func (*NotificationNew) eventType() Type     { return TypeNotificationNew }
func (*NotificationRead) eventType() Type    { return TypeNotificationRead }
func (*NotificationAllRead) eventType() Type { return TypeNotificationAllRead }
func (*UnreadCount) eventType() Type         { return TypeUnreadCount }
func (*PresenceChanged) eventType() Type     { return TypePresenceChanged }

// Event is the wire envelope {"type": ..., "data": ...}.
type Event struct {
	Type Type    `json:"type"`
	Data Payload `json:"data"`
}

// New tags p with its type.
func New(p Payload) Event {
	return Event{Type: p.eventType(), Data: p}
}

// Encode serializes the envelope.
func Encode(e Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "encode event")
	}

	return b, nil
}

var decoders = map[Type]func() Payload{
	TypeConnected:           func() Payload { return &Connected{} },
	TypeConnectError:        func() Payload { return &ConnectError{} },
	TypeNotificationNew:     func() Payload { return &NotificationNew{} },
	TypeNotificationRead:    func() Payload { return &NotificationRead{} },
	TypeNotificationAllRead: func() Payload { return &NotificationAllRead{} },
	TypeUnreadCount:         func() Payload { return &UnreadCount{} },
	TypePresenceChanged:     func() Payload { return &PresenceChanged{} },
}

type rawEvent struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses an envelope into its typed payload.
func Decode(b []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(b, &raw); err != nil {
		return Event{}, errors.Wrap(err, "decode event envelope")
	}

	factory, ok := decoders[raw.Type]
	if !ok {
		return Event{}, errors.Wrapf(ErrUnknownType, "type %q", raw.Type)
	}

	payload := factory()
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return Event{}, errors.Wrapf(err, "decode %s payload", raw.Type)
		}
	}

	return Event{Type: raw.Type, Data: payload}, nil
}

// Handlers is an explicit dispatch table. Nil entries are skipped.
type Handlers struct {
	Connected           func(*Connected)
	ConnectError        func(*ConnectError)
	NotificationNew     func(*NotificationNew)
	NotificationRead    func(*NotificationRead)
	NotificationAllRead func(*NotificationAllRead)
	UnreadCount         func(*UnreadCount)
	PresenceChanged     func(*PresenceChanged)
}

// Dispatch calls the handler for e and reports whether one ran.
func (h Handlers) Dispatch(e Event) bool {
	switch p := e.Data.(type) {
	case *Connected:
		return call(h.Connected, p)
	case *ConnectError:
		return call(h.ConnectError, p)
	case *NotificationNew:
		return call(h.NotificationNew, p)
	case *NotificationRead:
		return call(h.NotificationRead, p)
	case *NotificationAllRead:
		return call(h.NotificationAllRead, p)
	case *UnreadCount:
		return call(h.UnreadCount, p)
	case *PresenceChanged:
		return call(h.PresenceChanged, p)
	default:
		return false
	}
}

func call[T any](fn func(T), p T) bool {
	if fn == nil {
		return false
	}
	fn(p)

	return true
}
