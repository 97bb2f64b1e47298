package repository

import (
	"context"
	"time"

	"herald/internal/domain/entity"
	"herald/internal/errors"

	"github.com/google/uuid"
)

// ErrNotificationNotFound is returned when a notification is not found or belongs to another recipient.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository defines the interface for notification-related database operations.
// Reads back the authoritative pull path and must not be served from a lagging replica.
type NotificationRepository interface {
	// CreateNotification persists a new notification.
	CreateNotification(ctx context.Context, notification *entity.Notification) error

	// FindNotificationByID retrieves a notification owned by recipientID.
	FindNotificationByID(ctx context.Context, id, recipientID uuid.UUID) (*entity.Notification, error)

	// ListNotifications returns a recipient's notifications, newest first.
	ListNotifications(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*entity.Notification, error)

	// CountNotifications returns the recipient's total.
	CountNotifications(ctx context.Context, recipientID uuid.UUID) (int64, error)

	// CountUnread returns the recipient's unread total.
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)

	// MarkRead flips one unread notification to read at readAt.
	// changed is false when it was already read.
	MarkRead(ctx context.Context, id, recipientID uuid.UUID, readAt time.Time) (changed bool, err error)

	// MarkAllRead flips every unread notification of the recipient and returns how many changed.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error)
}
