package postgres

import (
	"context"
	"time"

	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/repository"
	"herald/internal/errors"
	"herald/internal/infra/persistence/model"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// notificationRepository implements the repository.NotificationRepository interface.
// Every read is pinned to the primary: the pull path is what clients reconcile against.
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository is the constructor for notificationRepository.
func NewNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &notificationRepository{
		db: db,
	}
}

func (repo *notificationRepository) primary(ctx context.Context) *gorm.DB {
	return repo.db.WithContext(ctx).Clauses(dbresolver.Write)
}

// CreateNotification persists a new notification.
func (repo *notificationRepository) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	notificationM := fromNotificationDomain(notification)

	if err := repo.db.WithContext(ctx).Create(notificationM).Error; err != nil {
		if isCheckConstraintViolation(err) {
			return domainerrors.ErrInvalidNotificationType
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrAccountNotFound.WrapMessage("invalid recipient or sender reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create notification")
	}

	notification.ID = notificationM.ID
	notification.CreatedAt = notificationM.CreatedAt

	return nil
}

// FindNotificationByID retrieves a notification owned by recipientID.
func (repo *notificationRepository) FindNotificationByID(ctx context.Context, id, recipientID uuid.UUID) (*entity.Notification, error) {
	var notificationM model.NotificationModel

	if err := repo.primary(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&notificationM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotificationNotFound
		}

		return nil, errors.Wrap(err, "failed to find notification by ID")
	}

	return toNotificationDomain(&notificationM), nil
}

// ListNotifications returns a recipient's notifications, newest first.
func (repo *notificationRepository) ListNotifications(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	var notificationModels []*model.NotificationModel

	if err := repo.primary(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&notificationModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}

	notifications := make([]*entity.Notification, 0, len(notificationModels))
	for _, notificationM := range notificationModels {
		notifications = append(notifications, toNotificationDomain(notificationM))
	}

	return notifications, nil
}

// CountNotifications returns the recipient's total.
func (repo *notificationRepository) CountNotifications(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	if err := repo.primary(ctx).
		Model(&model.NotificationModel{}).
		Where("recipient_id = ?", recipientID).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count notifications")
	}

	return count, nil
}

// CountUnread returns the recipient's unread total.
func (repo *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	if err := repo.primary(ctx).
		Model(&model.NotificationModel{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count unread notifications")
	}

	return count, nil
}

// MarkRead flips one notification. The read = false guard makes the call idempotent
// and keeps read_at at its first value.
func (repo *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, readAt time.Time) (bool, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.NotificationModel{}).
		Where("id = ? AND recipient_id = ? AND read = ?", id, recipientID, false).
		Updates(map[string]any{"read": true, "read_at": readAt})

	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to mark notification read")
	}

	return result.RowsAffected > 0, nil
}

// MarkAllRead flips every unread notification of the recipient.
func (repo *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.NotificationModel{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Updates(map[string]any{"read": true, "read_at": readAt})

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to mark all notifications read")
	}

	return result.RowsAffected, nil
}

// --- Mapper Functions ---

func toNotificationDomain(data *model.NotificationModel) *entity.Notification {
	if data == nil {
		return nil
	}

	n := &entity.Notification{
		ID:          data.ID,
		RecipientID: data.RecipientID,
		SenderID:    data.SenderID,
		Type:        entity.NotificationType(data.Type),
		Message:     data.Message,
		Read:        data.Read,
		ReadAt:      data.ReadAt,
		CreatedAt:   data.CreatedAt,
	}
	if len(data.Data) > 0 {
		n.Data = json.RawMessage(data.Data)
	}

	return n
}

func fromNotificationDomain(data *entity.Notification) *model.NotificationModel {
	if data == nil {
		return nil
	}

	m := &model.NotificationModel{
		ID:          data.ID,
		RecipientID: data.RecipientID,
		SenderID:    data.SenderID,
		Type:        string(data.Type),
		Message:     data.Message,
		Read:        data.Read,
		ReadAt:      data.ReadAt,
		CreatedAt:   data.CreatedAt,
	}
	if len(data.Data) > 0 {
		m.Data = datatypes.JSON(data.Data)
	}

	return m
}
