// Package pubsub relays account events between service instances so that a
// connection held by one instance sees writes handled by another.
package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"herald/config"
	"herald/internal/domain/constants"
	"herald/internal/domain/service"
	"herald/internal/errors"

	"go.uber.org/fx"
)

// listener pulls envelopes from a broker until ctx is done.
type listener interface {
	Listen(ctx context.Context, sink service.RelaySink) error
}

// noopPublisher is used when the relay is disabled (single instance).
type noopPublisher struct {
	logger *slog.Logger
}

func (p *noopPublisher) Publish(_ context.Context, envelope *service.RelayEnvelope) error {
	p.logger.Debug("[NoopRelay] Relay disabled, skipping",
		slog.String("account_id", envelope.AccountID.String()),
	)

	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}

// Relay bundles the configured publisher with its optional pull listener.
type Relay struct {
	provider  string
	publisher service.RelayPublisher
	listener  listener
}

// Provider returns the configured provider name.
func (r *Relay) Provider() string {
	return r.provider
}

// Publisher returns the breaker-guarded publisher.
func (r *Relay) Publisher() service.RelayPublisher {
	return r.publisher
}

// RelayParams holds dependencies for Relay, injected by Fx
type RelayParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewRelay creates the relay based on configuration.
func NewRelay(params RelayParams) (*Relay, error) {
	cfg := params.Config.Relay
	logger := params.Logger.With(slog.String("component", "relay"))

	if cfg == nil || cfg.Provider == "" || cfg.Provider == constants.RelayProviderNoop {
		logger.Info("Relay not configured, events stay on this instance")

		return &Relay{provider: constants.RelayProviderNoop, publisher: &noopPublisher{logger: logger}}, nil
	}

	relay, err := openRelay(params.Ctx, cfg, params.Config.Redis, logger)
	if err != nil {
		return nil, err
	}

	inner := relay.publisher
	relay.publisher = newBreakerPublisher(inner, cfg.Provider, cfg.Breaker, logger)

	params.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Info("Closing relay publisher")

			return inner.Close()
		},
	})

	return relay, nil
}

func openRelay(ctx context.Context, cfg *config.RelayConfig, redisCfg *config.RedisConfig, logger *slog.Logger) (*Relay, error) {
	switch cfg.Provider {
	case constants.RelayProviderLocal:
		if len(cfg.LocalEndpoints) == 0 {
			return nil, errors.New("local endpoints are required for local provider")
		}
		logger.Info("Using local HTTP relay", slog.Any("endpoints", cfg.LocalEndpoints))

		return &Relay{provider: cfg.Provider, publisher: NewLocalHTTPPublisher(cfg.LocalEndpoints, logger)}, nil

	case constants.RelayProviderGoogle:
		if cfg.ProjectID == "" {
			return nil, errors.New("project ID is required for google provider")
		}
		if cfg.TopicID == "" {
			return nil, errors.New("topic ID is required for google provider")
		}
		logger.Info("Using Google Pub/Sub relay",
			slog.String("project_id", cfg.ProjectID),
			slog.String("topic_id", cfg.TopicID),
		)

		publisher, err := NewGooglePubSubPublisher(ctx, cfg.ProjectID, cfg.TopicID, logger)
		if err != nil {
			return nil, err
		}

		return &Relay{provider: cfg.Provider, publisher: publisher}, nil

	case constants.RelayProviderRedis:
		if redisCfg == nil || redisCfg.Addr == "" {
			return nil, errors.New("redis address is required for redis provider")
		}
		logger.Info("Using Redis relay",
			slog.String("addr", redisCfg.Addr),
			slog.String("channel", cfg.Channel),
		)

		r := newRedisRelay(NewRedisClient(redisCfg), cfg.Channel, logger)

		return &Relay{provider: cfg.Provider, publisher: r, listener: r}, nil

	case constants.RelayProviderGoCloud:
		if cfg.TopicURL == "" || cfg.SubscriptionURL == "" {
			return nil, errors.New("topic and subscription URLs are required for gocloud provider")
		}
		logger.Info("Using Go CDK relay", slog.String("topic_url", cfg.TopicURL))

		r, err := openGoCloudRelay(ctx, cfg.TopicURL, cfg.SubscriptionURL, logger)
		if err != nil {
			return nil, err
		}

		return &Relay{provider: cfg.Provider, publisher: r, listener: r}, nil

	default:
		return nil, errors.Errorf("unknown relay provider: %s", cfg.Provider)
	}
}

// StartListener runs the pull listener, if the provider has one, for the app's lifetime.
// Push-style providers (local, google) deliver through the worker endpoint instead.
func StartListener(lc fx.Lifecycle, relay *Relay, sink service.RelaySink, logger *slog.Logger) {
	if relay.listener == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := relay.listener.Listen(ctx, sink); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Relay listener stopped", slog.Any("error", err), slog.String("provider", relay.provider))
				}
			}()

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			wg.Wait()

			return nil
		},
	})
}

// Module provides the relay FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(
		NewRelay,
		func(r *Relay) service.RelayPublisher { return r.Publisher() },
	),
	fx.Invoke(StartListener),
)
