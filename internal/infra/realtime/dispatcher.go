package realtime

import (
	"context"
	"log/slog"

	"herald/config"
	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/event"
	"herald/internal/domain/service"
	"herald/internal/errors"
	"herald/internal/infra/metrics"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// DispatcherParams holds dependencies for Dispatcher, injected by Fx.
type DispatcherParams struct {
	fx.In

	Hub    *Hub
	Relay  service.RelayPublisher
	Config *config.Config
	Logger *slog.Logger
}

// Dispatcher delivers account events to local connections and forwards them
// to peers. Envelopes coming back from the relay are delivered locally only.
type Dispatcher struct {
	hub      *Hub
	relay    service.RelayPublisher
	instance string
	logger   *slog.Logger
}

// NewDispatcher wires the hub to the relay.
func NewDispatcher(params DispatcherParams) *Dispatcher {
	instance := ""
	if params.Config.Relay != nil {
		instance = params.Config.Relay.InstanceID
	}

	return newDispatcher(params.Hub, params.Relay, instance, params.Logger)
}

func newDispatcher(hub *Hub, relay service.RelayPublisher, instance string, logger *slog.Logger) *Dispatcher {
	if instance == "" {
		instance = uuid.NewString()
	}

	return &Dispatcher{
		hub:      hub,
		relay:    relay,
		instance: instance,
		logger:   logger.With(slog.String("component", "dispatcher"), slog.String("instance", instance)),
	}
}

// Instance returns the origin id stamped on outgoing envelopes.
func (d *Dispatcher) Instance() string {
	return d.instance
}

// PublishToAccount delivers locally first, then relays. A relay failure is
// logged and returned but never undoes local delivery.
func (d *Dispatcher) PublishToAccount(ctx context.Context, accountID uuid.UUID, e event.Event) error {
	payload, err := event.Encode(e)
	if err != nil {
		return err
	}

	n := d.hub.DeliverRaw(accountID, e.Type, payload)
	d.logger.Debug("Event delivered locally",
		slog.String("account_id", accountID.String()),
		slog.String("type", string(e.Type)),
		slog.Int("connections", n),
	)

	envelope := &service.RelayEnvelope{
		RequestID: deliverycontext.GetRequestIDFromContext(ctx),
		Origin:    d.instance,
		AccountID: accountID,
		Event:     payload,
	}
	if err := d.relay.Publish(ctx, envelope); err != nil {
		d.logger.Warn("Failed to relay event",
			slog.Any("error", err),
			slog.String("account_id", accountID.String()),
			slog.String("type", string(e.Type)),
		)

		return errors.Wrap(err, "relay event")
	}

	return nil
}

// Accept delivers a peer's envelope to local connections. Our own echoes are dropped.
func (d *Dispatcher) Accept(_ context.Context, envelope *service.RelayEnvelope) error {
	if envelope.Origin == d.instance {
		metrics.RecordRelay("sink", "receive", "self")

		return nil
	}

	e, err := event.Decode(envelope.Event)
	if err != nil {
		metrics.RecordRelay("sink", "receive", "malformed")

		return err
	}

	d.hub.DeliverRaw(envelope.AccountID, e.Type, envelope.Event)
	metrics.RecordRelay("sink", "receive", "ok")

	return nil
}

// Module provides the realtime FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(
		NewHub,
		NewDispatcher,
		func(d *Dispatcher) service.EventPublisher { return d },
		func(d *Dispatcher) service.RelaySink { return d },
	),
)
