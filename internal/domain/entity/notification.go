package entity

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// NotificationType enumerates what triggered a notification.
type NotificationType string

const (
	NotificationTypeFollow  NotificationType = "follow"
	NotificationTypeMessage NotificationType = "message"
	NotificationTypeLike    NotificationType = "like"
	NotificationTypeComment NotificationType = "comment"
	NotificationTypeMention NotificationType = "mention"
)

// Valid reports whether t is one of the known types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeFollow, NotificationTypeMessage, NotificationTypeLike,
		NotificationTypeComment, NotificationTypeMention:
		return true
	default:
		return false
	}
}

// Notification is addressed to one recipient. Read only moves from false to true,
// and ReadAt is non-nil exactly when Read is true.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	SenderID    uuid.UUID        `json:"sender_id"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	Data        json.RawMessage  `json:"data,omitempty"` // Opaque pointer to the subject, e.g. a chat or post.
	Read        bool             `json:"read"`
	ReadAt      *time.Time       `json:"read_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NotificationPage is one page of the authoritative pull path.
type NotificationPage struct {
	Items  []*Notification `json:"items"`
	Total  int64           `json:"total"`
	Unread int64           `json:"unread"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
