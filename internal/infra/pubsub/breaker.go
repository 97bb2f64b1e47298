package pubsub

import (
	"context"
	"log/slog"

	"herald/config"
	"herald/internal/domain/service"
	"herald/internal/errors"
	"herald/internal/infra/metrics"

	"github.com/sony/gobreaker/v2"
)

const defaultFailureThreshold = 5

// ErrRelayUnavailable is returned while the breaker is open.
var ErrRelayUnavailable = errors.New("relay unavailable")

// breakerPublisher stops hammering a failing broker; callers treat the
// relay as best effort, so an open breaker only costs peer hints.
type breakerPublisher struct {
	next     service.RelayPublisher
	provider string
	cb       *gobreaker.CircuitBreaker[struct{}]
}

func newBreakerPublisher(next service.RelayPublisher, provider string, cfg config.BreakerConfig, logger *slog.Logger) *breakerPublisher {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        "relay-" + provider,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Relay circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &breakerPublisher{
		next:     next,
		provider: provider,
		cb:       gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (p *breakerPublisher) Publish(ctx context.Context, envelope *service.RelayEnvelope) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, envelope)
	})

	switch {
	case err == nil:
		metrics.RecordRelay(p.provider, "publish", "ok")

		return nil
	case errors.IsAny(err, gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests):
		metrics.RecordRelay(p.provider, "publish", "rejected")

		return errors.Wrap(ErrRelayUnavailable, err.Error())
	default:
		metrics.RecordRelay(p.provider, "publish", "error")

		return err
	}
}

func (p *breakerPublisher) Close() error {
	return p.next.Close()
}

// State exposes the breaker state for health reporting.
func (p *breakerPublisher) State() gobreaker.State {
	return p.cb.State()
}
