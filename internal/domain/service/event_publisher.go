package service

import (
	"context"

	"herald/internal/domain/event"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventPublisher delivers an event to every live connection of an account,
// on this instance and on its peers. Delivery is best effort.
type EventPublisher interface {
	PublishToAccount(ctx context.Context, accountID uuid.UUID, e event.Event) error
}

// RelayEnvelope is the cross-instance message. Origin lets an instance drop its own echoes.
type RelayEnvelope struct {
	RequestID string          `json:"request_id,omitempty"` // For distributed tracing
	Origin    string          `json:"origin"`
	AccountID uuid.UUID       `json:"account_id"`
	Event     json.RawMessage `json:"event"`
}

// RelayPublisher forwards envelopes to peer instances.
type RelayPublisher interface {
	Publish(ctx context.Context, envelope *RelayEnvelope) error

	// Close releases any resources held by the publisher
	Close() error
}

// RelaySink receives envelopes published by peers.
type RelaySink interface {
	Accept(ctx context.Context, envelope *RelayEnvelope) error
}
