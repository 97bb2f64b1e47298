package usecase

import (
	"context"

	"herald/internal/domain/entity"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// CreateNotificationInput is what the surrounding application submits.
type CreateNotificationInput struct {
	RecipientID uuid.UUID               `json:"recipient_id" validate:"required"`
	Type        entity.NotificationType `json:"type" validate:"required"`
	Message     string                  `json:"message" validate:"required,max=500"`
	Data        json.RawMessage         `json:"data,omitempty"`
}

// MarkAllReadOutput reports how many notifications flipped.
type MarkAllReadOutput struct {
	Updated int64 `json:"updated"`
	Unread  int64 `json:"unread"`
}

// NotificationUsecase is the authoritative pull path plus the writes that emit push hints.
type NotificationUsecase interface {
	// Create stores a notification from senderID and emits it to the recipient's room.
	Create(ctx context.Context, senderID uuid.UUID, input *CreateNotificationInput) (*entity.Notification, error)

	// List returns one page, newest first. limit is clamped to [1, MaxPageLimit].
	List(ctx context.Context, recipientID uuid.UUID, limit, offset int) (*entity.NotificationPage, error)

	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)

	// MarkRead is idempotent: repeating it returns the stored notification and emits nothing.
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (*entity.Notification, error)

	// MarkAllRead is the bulk idempotent version of MarkRead.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (*MarkAllReadOutput, error)
}
