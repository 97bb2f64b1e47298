package pubsub

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"herald/internal/domain/service"
	"herald/internal/errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// PushMessage is the body of a Pub/Sub push request. The local provider
// produces the same shape so one worker handler serves both.
type PushMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// localHTTPPublisher pushes envelopes straight to each peer's worker endpoint.
type localHTTPPublisher struct {
	endpoints  []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLocalHTTPPublisher creates a relay publisher for development clusters.
func NewLocalHTTPPublisher(endpoints []string, logger *slog.Logger) service.RelayPublisher {
	return &localHTTPPublisher{
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Publish posts to every peer; it fails when any peer fails.
func (p *localHTTPPublisher) Publish(ctx context.Context, envelope *service.RelayEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.WithStack(err)
	}

	pushMsg := PushMessage{
		Subscription: "projects/local/subscriptions/herald-relay",
	}
	pushMsg.Message.Data = base64.StdEncoding.EncodeToString(data)
	pushMsg.Message.MessageID = uuid.NewString()
	pushMsg.Message.PublishTime = time.Now().UTC().Format(time.RFC3339)
	pushMsg.Message.Attributes = map[string]string{"origin": envelope.Origin}
	if envelope.RequestID != "" {
		pushMsg.Message.Attributes["request_id"] = envelope.RequestID
	}

	body, err := json.Marshal(pushMsg)
	if err != nil {
		return errors.WithStack(err)
	}

	var errs []error
	for _, endpoint := range p.endpoints {
		if err := p.post(ctx, endpoint, body, envelope.RequestID); err != nil {
			errs = append(errs, errors.Wrapf(err, "push to %s", endpoint))
		}
	}

	return errors.Join(errs...)
}

func (p *localHTTPPublisher) post(ctx context.Context, endpoint string, body []byte, requestID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("peer returned non-success status: %d", resp.StatusCode)
	}

	return nil
}

// Close releases resources (no-op for HTTP client)
func (p *localHTTPPublisher) Close() error {
	return nil
}

// DecodePushMessage extracts the envelope from a push body.
func DecodePushMessage(msg *PushMessage) (*service.RelayEnvelope, error) {
	data, err := base64.StdEncoding.DecodeString(msg.Message.Data)
	if err != nil {
		return nil, errors.Wrap(err, "decode push data")
	}

	var envelope service.RelayEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode relay envelope")
	}

	if envelope.RequestID == "" {
		envelope.RequestID = msg.Message.Attributes["request_id"]
	}

	return &envelope, nil
}
