// Package notification delivers offline push to registered devices.
package notification

import (
	"context"
	"log/slog"

	"herald/config"
	"herald/internal/domain/service"
	"herald/internal/errors"
	"herald/internal/infra/metrics"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// MaxBatchSize is the FCM multicast limit.
const MaxBatchSize = 500

// ErrBatchTooLarge is returned for more than MaxBatchSize tokens.
var ErrBatchTooLarge = errors.New("token count exceeds multicast limit")

// multicaster is the part of *messaging.Client the service uses.
type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type firebaseService struct {
	client multicaster
	logger *slog.Logger
}

// NewPushService returns the FCM push service, or nil when Firebase is not
// configured so that notifications fall back to realtime delivery only.
func NewPushService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.PushService, error) {
	if cfg.Firebase == nil || cfg.Firebase.CredentialsPath == "" {
		logger.Info("Firebase not configured, offline push disabled")

		return nil, nil
	}

	return NewFirebaseService(ctx, cfg.Firebase, logger)
}

// NewFirebaseService creates a new Firebase notification service instance
func NewFirebaseService(ctx context.Context, cfg *config.FirebaseConfig, logger *slog.Logger) (service.PushService, error) {
	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get messaging client")
	}

	return &firebaseService{client: client, logger: logger}, nil
}

// SendBatch sends one notification to up to MaxBatchSize device tokens.
func (s *firebaseService) SendBatch(ctx context.Context, tokens []string, title, body string, data map[string]string) (successCount, failureCount int, invalidTokens []string, err error) {
	if len(tokens) == 0 {
		return 0, 0, nil, nil
	}
	if len(tokens) > MaxBatchSize {
		return 0, 0, nil, errors.Wrapf(ErrBatchTooLarge, "%d tokens", len(tokens))
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		metrics.PushSent.WithLabelValues("error").Add(float64(len(tokens)))

		return 0, 0, nil, errors.Wrap(err, "failed to send multicast notification")
	}

	metrics.PushSent.WithLabelValues("success").Add(float64(response.SuccessCount))
	metrics.PushSent.WithLabelValues("failure").Add(float64(response.FailureCount))

	return response.SuccessCount, response.FailureCount, collectInvalid(tokens, response.Responses, isInvalidToken), nil
}

func isInvalidToken(err error) bool {
	return messaging.IsInvalidArgument(err) || messaging.IsUnregistered(err)
}

// collectInvalid returns the tokens whose send failed with an error the
// provider will never recover from.
func collectInvalid(tokens []string, responses []*messaging.SendResponse, invalid func(error) bool) []string {
	out := make([]string, 0)
	for idx, sendResponse := range responses {
		if idx >= len(tokens) || sendResponse == nil || sendResponse.Error == nil {
			continue
		}
		if invalid(sendResponse.Error) {
			out = append(out, tokens[idx])
		}
	}

	return out
}
