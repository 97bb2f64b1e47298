package realtime

import (
	"context"
	"sync"
	"testing"

	"herald/internal/domain/event"
	"herald/internal/domain/service"
	"herald/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback stands in for a broker that delivers every envelope to every subscriber, sender included.
type loopback struct {
	mu    sync.Mutex
	sinks []service.RelaySink
	sent  []*service.RelayEnvelope
	err   error
}

func (l *loopback) Publish(ctx context.Context, envelope *service.RelayEnvelope) error {
	l.mu.Lock()
	l.sent = append(l.sent, envelope)
	sinks := append([]service.RelaySink(nil), l.sinks...)
	err := l.err
	l.mu.Unlock()

	if err != nil {
		return err
	}
	for _, s := range sinks {
		_ = s.Accept(ctx, envelope)
	}

	return nil
}

func (l *loopback) Close() error { return nil }

func TestDispatcher_CrossInstanceDeliveryExactlyOnce(t *testing.T) {
	broker := &loopback{}
	hubA, hubB := testHub(false), testHub(false)
	a := newDispatcher(hubA, broker, "instance-a", hubA.logger)
	b := newDispatcher(hubB, broker, "instance-b", hubB.logger)
	broker.sinks = []service.RelaySink{a, b}

	accountID := uuid.New()
	onA := joined(t, hubA, accountID, 4)
	onB := joined(t, hubB, accountID, 4)

	require.NoError(t, a.PublishToAccount(context.Background(), accountID, event.New(&event.UnreadCount{Count: 2})))

	gotA := drain(onA)
	gotB := drain(onB)
	require.Len(t, gotA, 1, "own echo must be dropped")
	require.Len(t, gotB, 1)
	assert.Equal(t, int64(2), gotB[0].Data.(*event.UnreadCount).Count)
	assert.Equal(t, "instance-a", broker.sent[0].Origin)
}

func TestDispatcher_RelayFailureKeepsLocalDelivery(t *testing.T) {
	broker := &loopback{err: errors.New("broker down")}
	hub := testHub(false)
	d := newDispatcher(hub, broker, "solo", hub.logger)

	accountID := uuid.New()
	c := joined(t, hub, accountID, 4)

	err := d.PublishToAccount(context.Background(), accountID, event.New(&event.UnreadCount{Count: 1}))

	require.Error(t, err)
	assert.Len(t, drain(c), 1)
}

func TestDispatcher_AcceptRejectsMalformedEvent(t *testing.T) {
	hub := testHub(false)
	d := newDispatcher(hub, &loopback{}, "", hub.logger)
	assert.NotEmpty(t, d.Instance())

	err := d.Accept(context.Background(), &service.RelayEnvelope{
		Origin:    "peer",
		AccountID: uuid.New(),
		Event:     []byte(`{"type":"nope","data":{}}`),
	})

	assert.ErrorIs(t, err, event.ErrUnknownType)
}
