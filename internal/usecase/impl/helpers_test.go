package impl

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"herald/internal/domain/entity"
	"herald/internal/domain/event"
	"herald/internal/domain/repository"

	"github.com/google/uuid"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock advances by step on every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		t := current
		current = current.Add(step)

		return t
	}
}

// memNotifications is an in-memory NotificationRepository with the same
// read/read_at semantics as the SQL implementation.
type memNotifications struct {
	mu    sync.Mutex
	items map[uuid.UUID]*entity.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{items: make(map[uuid.UUID]*entity.Notification)}
}

func (m *memNotifications) CreateNotification(_ context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *n
	m.items[n.ID] = &cp

	return nil
}

func (m *memNotifications) FindNotificationByID(_ context.Context, id, recipientID uuid.UUID) (*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.items[id]
	if !ok || n.RecipientID != recipientID {
		return nil, repository.ErrNotificationNotFound
	}
	cp := *n

	return &cp, nil
}

func (m *memNotifications) ListNotifications(_ context.Context, recipientID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Notification) int { return b.CreatedAt.Compare(a.CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}

	return out[offset:min(offset+limit, len(out))], nil
}

func (m *memNotifications) CountNotifications(_ context.Context, recipientID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, item := range m.items {
		if item.RecipientID == recipientID {
			n++
		}
	}

	return n, nil
}

func (m *memNotifications) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, item := range m.items {
		if item.RecipientID == recipientID && !item.Read {
			n++
		}
	}

	return n, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, recipientID uuid.UUID, readAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.items[id]
	if !ok || n.RecipientID != recipientID || n.Read {
		return false, nil
	}
	n.Read = true
	n.ReadAt = &readAt

	return true, nil
}

func (m *memNotifications) MarkAllRead(_ context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed int64
	for _, n := range m.items {
		if n.RecipientID != recipientID || n.Read {
			continue
		}
		at := readAt
		n.Read = true
		n.ReadAt = &at
		changed++
	}

	return changed, nil
}

// memTx runs fn directly against the in-memory repositories.
type memTx struct {
	accounts      repository.AccountRepository
	notifications repository.NotificationRepository
}

func (tx *memTx) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(tx)
}

func (tx *memTx) NewAccountRepository() repository.AccountRepository {
	return tx.accounts
}

func (tx *memTx) NewNotificationRepository() repository.NotificationRepository {
	return tx.notifications
}

// fanout hands every published event to each subscriber of the account, the
// way every tab in an account room receives it.
type fanout struct {
	mu     sync.Mutex
	subs   map[uuid.UUID][]func(event.Event)
	drop   bool
	events []event.Event
}

func newFanout() *fanout {
	return &fanout{subs: make(map[uuid.UUID][]func(event.Event))}
}

func (f *fanout) subscribe(accountID uuid.UUID, fn func(event.Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subs[accountID] = append(f.subs[accountID], fn)
}

func (f *fanout) PublishToAccount(_ context.Context, accountID uuid.UUID, e event.Event) error {
	f.mu.Lock()
	f.events = append(f.events, e)
	subs := slices.Clone(f.subs[accountID])
	drop := f.drop
	f.mu.Unlock()

	if drop {
		return nil
	}
	for _, fn := range subs {
		fn(e)
	}

	return nil
}

func (f *fanout) types() []event.Type {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]event.Type, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}

	return out
}
