// Package inbox is the client-side notification state. Pushed events are
// applied optimistically; a pulled page always wins.
package inbox

import (
	"slices"
	"sync"
	"time"

	"herald/internal/domain/entity"
	"herald/internal/domain/event"

	"github.com/google/uuid"
)

// Inbox holds the notifications a client knows about plus the unread count.
type Inbox struct {
	mu     sync.RWMutex
	items  map[uuid.UUID]*entity.Notification
	unread int64
}

func New() *Inbox {
	return &Inbox{items: make(map[uuid.UUID]*entity.Notification)}
}

// Apply folds one pushed event into the state and reports whether anything changed.
// Events outside the notification family are ignored.
func (b *Inbox) Apply(e event.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := false
	event.Handlers{
		NotificationNew: func(p *event.NotificationNew) {
			changed = b.insert(p.Notification)
		},
		NotificationRead: func(p *event.NotificationRead) {
			changed = b.markRead(p.ID, p.ReadAt)
		},
		NotificationAllRead: func(p *event.NotificationAllRead) {
			changed = b.markAllRead(p.ReadAt)
		},
		UnreadCount: func(p *event.UnreadCount) {
			changed = b.unread != p.Count
			b.unread = p.Count
		},
	}.Dispatch(e)

	return changed
}

func (b *Inbox) insert(n *entity.Notification) bool {
	if n == nil {
		return false
	}
	if _, known := b.items[n.ID]; known {
		return false
	}

	cp := *n
	b.items[n.ID] = &cp
	if !cp.Read {
		b.unread++
	}

	return true
}

// markRead decrements only on the unread to read transition of a known item,
// so a repeated event never decrements twice.
func (b *Inbox) markRead(id uuid.UUID, readAt time.Time) bool {
	n, ok := b.items[id]
	if !ok || n.Read {
		return false
	}

	n.Read = true
	n.ReadAt = &readAt
	if b.unread > 0 {
		b.unread--
	}

	return true
}

func (b *Inbox) markAllRead(readAt time.Time) bool {
	changed := false
	for _, n := range b.items {
		if n.Read || n.CreatedAt.After(readAt) {
			continue
		}
		at := readAt
		n.Read = true
		n.ReadAt = &at
		changed = true
		if b.unread > 0 {
			b.unread--
		}
	}

	return changed
}

// Reconcile replaces local state with a pulled page.
func (b *Inbox) Reconcile(page *entity.NotificationPage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = make(map[uuid.UUID]*entity.Notification, len(page.Items))
	for _, n := range page.Items {
		cp := *n
		b.items[n.ID] = &cp
	}
	b.unread = page.Unread
}

// Unread returns the current unread count.
func (b *Inbox) Unread() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.unread
}

// Get returns a copy of one notification.
func (b *Inbox) Get(id uuid.UUID) (*entity.Notification, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n, ok := b.items[id]
	if !ok {
		return nil, false
	}
	cp := *n

	return &cp, true
}

// Items returns copies of every known notification, newest first.
func (b *Inbox) Items() []*entity.Notification {
	b.mu.RLock()
	out := make([]*entity.Notification, 0, len(b.items))
	for _, n := range b.items {
		cp := *n
		out = append(out, &cp)
	}
	b.mu.RUnlock()

	slices.SortFunc(out, func(a, b *entity.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out
}
