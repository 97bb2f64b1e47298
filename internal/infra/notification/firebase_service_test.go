package notification

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"herald/config"
	"herald/internal/errors"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMulticaster struct {
	got      *messaging.MulticastMessage
	response *messaging.BatchResponse
	err      error
}

func (f *fakeMulticaster) SendEachForMulticast(_ context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.got = message

	return f.response, f.err
}

func newTestService(client multicaster) *firebaseService {
	return &firebaseService{client: client, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSendBatch_EmptyIsNoop(t *testing.T) {
	client := &fakeMulticaster{}
	svc := newTestService(client)

	ok, failed, invalid, err := svc.SendBatch(context.Background(), nil, "t", "b", nil)

	require.NoError(t, err)
	assert.Zero(t, ok)
	assert.Zero(t, failed)
	assert.Empty(t, invalid)
	assert.Nil(t, client.got)
}

func TestSendBatch_RejectsOversizedBatch(t *testing.T) {
	svc := newTestService(&fakeMulticaster{})
	tokens := make([]string, MaxBatchSize+1)

	_, _, _, err := svc.SendBatch(context.Background(), tokens, "t", "b", nil)

	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestSendBatch_ForwardsMessage(t *testing.T) {
	client := &fakeMulticaster{response: &messaging.BatchResponse{
		SuccessCount: 2,
		Responses:    []*messaging.SendResponse{{Success: true}, {Success: true}},
	}}
	svc := newTestService(client)

	ok, failed, invalid, err := svc.SendBatch(context.Background(), []string{"a", "b"}, "title", "body",
		map[string]string{"notification_id": "n1"})

	require.NoError(t, err)
	assert.Equal(t, 2, ok)
	assert.Zero(t, failed)
	assert.Empty(t, invalid)
	assert.Equal(t, []string{"a", "b"}, client.got.Tokens)
	assert.Equal(t, "title", client.got.Notification.Title)
	assert.Equal(t, "n1", client.got.Data["notification_id"])
}

func TestSendBatch_ProviderError(t *testing.T) {
	svc := newTestService(&fakeMulticaster{err: errors.New("unavailable")})

	_, _, _, err := svc.SendBatch(context.Background(), []string{"a"}, "t", "b", nil)

	assert.Error(t, err)
}

func TestCollectInvalid(t *testing.T) {
	gone := errors.New("unregistered")
	responses := []*messaging.SendResponse{
		{Success: true},
		{Error: gone},
		{Error: errors.New("quota")},
	}

	got := collectInvalid([]string{"ok", "stale", "busy"}, responses, func(err error) bool {
		return errors.Is(err, gone)
	})

	assert.Equal(t, []string{"stale"}, got)
}

func TestNewPushService_Unconfigured(t *testing.T) {
	svc, err := NewPushService(context.Background(), &config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, err)
	assert.Nil(t, svc)
}
