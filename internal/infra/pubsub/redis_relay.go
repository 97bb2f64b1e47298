package pubsub

import (
	"context"
	"log/slog"

	"herald/config"
	"herald/internal/domain/service"
	"herald/internal/errors"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// redisRelay fans envelopes out over a Redis channel. Every instance,
// including the sender, is subscribed; the sink drops the sender's own echo.
type redisRelay struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func newRedisRelay(client *redis.Client, channel string, logger *slog.Logger) *redisRelay {
	return &redisRelay{client: client, channel: channel, logger: logger}
}

func (r *redisRelay) Publish(ctx context.Context, envelope *service.RelayEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return errors.Wrap(err, "redis publish")
	}

	return nil
}

// Listen subscribes until ctx is done. Undecodable messages are logged and skipped.
func (r *redisRelay) Listen(ctx context.Context, sink service.RelaySink) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "redis subscribe")
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var envelope service.RelayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				r.logger.Warn("[RedisRelay] Dropping malformed envelope", slog.Any("error", err))

				continue
			}

			if err := sink.Accept(ctx, &envelope); err != nil {
				r.logger.Warn("[RedisRelay] Sink rejected envelope", slog.Any("error", err))
			}
		}
	}
}

func (r *redisRelay) Close() error {
	return errors.WithStack(r.client.Close())
}
