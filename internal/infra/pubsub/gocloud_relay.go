package pubsub

import (
	"context"
	"log/slog"

	"herald/internal/domain/service"
	"herald/internal/errors"

	"github.com/goccy/go-json"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub" // mem:// for single-process clusters and tests
)

// goCloudRelay speaks any Go CDK broker selected by URL scheme.
type goCloudRelay struct {
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
	logger       *slog.Logger
}

// openGoCloudRelay opens the topic before the subscription so that
// mem:// subscriptions can find their topic.
func openGoCloudRelay(ctx context.Context, topicURL, subscriptionURL string, logger *slog.Logger) (*goCloudRelay, error) {
	topic, err := pubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open topic %s", topicURL)
	}

	subscription, err := pubsub.OpenSubscription(ctx, subscriptionURL)
	if err != nil {
		_ = topic.Shutdown(ctx)

		return nil, errors.Wrapf(err, "open subscription %s", subscriptionURL)
	}

	return &goCloudRelay{topic: topic, subscription: subscription, logger: logger}, nil
}

func (r *goCloudRelay) Publish(ctx context.Context, envelope *service.RelayEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := r.topic.Send(ctx, &pubsub.Message{
		Body:     data,
		Metadata: map[string]string{"origin": envelope.Origin},
	}); err != nil {
		return errors.Wrap(err, "gocloud send")
	}

	return nil
}

// Listen receives until ctx is done. Messages are acked once handed to the sink;
// relay events are hints, so redelivery buys nothing.
func (r *goCloudRelay) Listen(ctx context.Context, sink service.RelaySink) error {
	for {
		msg, err := r.subscription.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return errors.Wrap(err, "gocloud receive")
		}

		var envelope service.RelayEnvelope
		if err := json.Unmarshal(msg.Body, &envelope); err != nil {
			r.logger.Warn("[GoCloudRelay] Dropping malformed envelope", slog.Any("error", err))
			msg.Ack()

			continue
		}

		if err := sink.Accept(ctx, &envelope); err != nil {
			r.logger.Warn("[GoCloudRelay] Sink rejected envelope", slog.Any("error", err))
		}
		msg.Ack()
	}
}

func (r *goCloudRelay) Close() error {
	ctx := context.Background()

	return errors.Join(
		errors.WithStack(r.subscription.Shutdown(ctx)),
		errors.WithStack(r.topic.Shutdown(ctx)),
	)
}
