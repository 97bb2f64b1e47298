package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/event"
	"herald/internal/domain/repository"
	"herald/internal/domain/service"
	"herald/internal/errors"
	"herald/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const (
	// Firebase batch size limit
	firebaseBatchSize = 500

	pushTitle = "新通知"
)

type notificationService struct {
	txManager        repository.TransactionManager
	notificationRepo repository.NotificationRepository
	deviceRepo       repository.DeviceRepository
	publisher        service.EventPublisher
	pushService      service.PushService
	now              func() time.Time
	logger           *slog.Logger
}

// NotificationServiceParams holds dependencies for NotificationService, injected by Fx.
type NotificationServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	NotificationRepo repository.NotificationRepository
	DeviceRepo       repository.DeviceRepository
	Publisher        service.EventPublisher
	PushService      service.PushService `optional:"true"`
	Logger           *slog.Logger
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(params NotificationServiceParams) usecase.NotificationUsecase {
	return newNotificationService(params, time.Now)
}

func newNotificationService(params NotificationServiceParams, now func() time.Time) *notificationService {
	return &notificationService{
		txManager:        params.TxManager,
		notificationRepo: params.NotificationRepo,
		deviceRepo:       params.DeviceRepo,
		publisher:        params.Publisher,
		pushService:      params.PushService,
		now:              now,
		logger:           params.Logger,
	}
}

func (s *notificationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

// Create stores the notification, then emits the new item and the recipient's
// unread count. Push and device delivery never fail the write.
func (s *notificationService) Create(ctx context.Context, senderID uuid.UUID, input *usecase.CreateNotificationInput) (*entity.Notification, error) {
	if !input.Type.Valid() {
		return nil, errors.Wrapf(domainerrors.ErrInvalidNotificationType, "type %q", input.Type)
	}
	if input.RecipientID == uuid.Nil {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "recipient is required")
	}

	notification := &entity.Notification{
		ID:          uuid.New(),
		RecipientID: input.RecipientID,
		SenderID:    senderID,
		Type:        input.Type,
		Message:     input.Message,
		Data:        input.Data,
		CreatedAt:   s.now().UTC(),
	}

	var unread int64
	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewNotificationRepository()

		if err := repo.CreateNotification(ctx, notification); err != nil {
			return errors.Wrap(err, "failed to create notification")
		}

		var err error
		unread, err = repo.CountUnread(ctx, notification.RecipientID)

		return errors.Wrap(err, "failed to count unread")
	})
	if err != nil {
		s.log(ctx).Error("Failed to execute create notification transaction", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute create notification transaction")
	}

	s.emit(ctx, notification.RecipientID,
		event.New(&event.NotificationNew{Notification: notification}),
		event.New(&event.UnreadCount{Count: unread}),
	)
	s.pushToDevices(ctx, notification)

	return notification, nil
}

// List reads one page from the primary. It is the source of truth that
// clients reconcile pushed hints against.
func (s *notificationService) List(ctx context.Context, recipientID uuid.UUID, limit, offset int) (*entity.NotificationPage, error) {
	limit, offset = clampPage(limit, offset)

	items, err := s.notificationRepo.ListNotifications(ctx, recipientID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}

	total, err := s.notificationRepo.CountNotifications(ctx, recipientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count notifications")
	}

	unread, err := s.notificationRepo.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count unread")
	}

	return &entity.NotificationPage{
		Items:  items,
		Total:  total,
		Unread: unread,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	n, err := s.notificationRepo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count unread")
	}

	return n, nil
}

// MarkRead flips one notification. Only the first call sets read_at and emits.
func (s *notificationService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) (*entity.Notification, error) {
	var (
		notification *entity.Notification
		changed      bool
		unread       int64
	)

	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewNotificationRepository()

		var err error
		changed, err = repo.MarkRead(ctx, notificationID, recipientID, s.now().UTC())
		if err != nil {
			return errors.Wrap(err, "failed to mark notification read")
		}

		notification, err = repo.FindNotificationByID(ctx, notificationID, recipientID)
		if err != nil {
			return err
		}

		if !changed {
			return nil
		}
		unread, err = repo.CountUnread(ctx, recipientID)

		return errors.Wrap(err, "failed to count unread")
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, errors.Wrap(domainerrors.ErrNotificationNotFound, notificationID.String())
		}

		return nil, errors.Wrap(err, "failed to execute mark read transaction")
	}

	if changed {
		s.emit(ctx, recipientID,
			event.New(&event.NotificationRead{ID: notification.ID, ReadAt: *notification.ReadAt}),
			event.New(&event.UnreadCount{Count: unread}),
		)
	}

	return notification, nil
}

// MarkAllRead flips every unread notification of the recipient. It emits only
// when something changed.
func (s *notificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (*usecase.MarkAllReadOutput, error) {
	readAt := s.now().UTC()
	out := &usecase.MarkAllReadOutput{}

	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewNotificationRepository()

		var err error
		out.Updated, err = repo.MarkAllRead(ctx, recipientID, readAt)
		if err != nil {
			return errors.Wrap(err, "failed to mark all read")
		}

		out.Unread, err = repo.CountUnread(ctx, recipientID)

		return errors.Wrap(err, "failed to count unread")
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute mark all read transaction")
	}

	if out.Updated > 0 {
		s.emit(ctx, recipientID,
			event.New(&event.NotificationAllRead{ReadAt: readAt, Count: out.Updated}),
			event.New(&event.UnreadCount{Count: out.Unread}),
		)
	}

	return out, nil
}

// emit publishes hints in order. Failures are logged; the write already happened
// and clients converge on their next pull.
func (s *notificationService) emit(ctx context.Context, recipientID uuid.UUID, events ...event.Event) {
	for _, e := range events {
		if err := s.publisher.PublishToAccount(ctx, recipientID, e); err != nil {
			s.log(ctx).Warn("Failed to publish event",
				slog.Any("error", err),
				slog.String("account_id", recipientID.String()),
				slog.String("type", string(e.Type)),
			)
		}
	}
}

// pushToDevices sends an offline push to the recipient's active devices and
// deactivates tokens the provider reports as unregistered.
func (s *notificationService) pushToDevices(ctx context.Context, notification *entity.Notification) {
	if s.pushService == nil || s.deviceRepo == nil {
		return
	}

	devices, err := s.deviceRepo.FindActiveDevicesByAccount(ctx, notification.RecipientID)
	if err != nil {
		s.log(ctx).Warn("Failed to fetch devices for push", slog.Any("error", err))

		return
	}
	if len(devices) == 0 {
		return
	}

	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.FCMToken)
	}

	data := map[string]string{
		"notification_id": notification.ID.String(),
		"type":            string(notification.Type),
	}

	var (
		totalSent     int
		totalFailed   int
		invalidTokens []string
	)
	for i := 0; i < len(tokens); i += firebaseBatchSize {
		end := min(i+firebaseBatchSize, len(tokens))
		batch := tokens[i:end]

		sent, failed, invalid, err := s.pushService.SendBatch(ctx, batch, pushTitle, notification.Message, data)
		if err != nil {
			// Log error but continue with other batches
			s.log(ctx).Warn("Failed to send push batch", slog.Any("error", err), slog.Int("size", len(batch)))
			totalFailed += len(batch)

			continue
		}
		totalSent += sent
		totalFailed += failed
		invalidTokens = append(invalidTokens, invalid...)
	}

	if len(invalidTokens) > 0 {
		if err := s.deviceRepo.DeactivateByFCMTokens(ctx, invalidTokens); err != nil {
			s.log(ctx).Warn("Failed to deactivate invalid tokens", slog.Any("error", err))
		}
	}

	s.log(ctx).Debug("Push delivered",
		slog.String("notification_id", notification.ID.String()),
		slog.Int("sent", totalSent),
		slog.Int("failed", totalFailed),
		slog.Int("invalid", len(invalidTokens)),
	)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = usecase.DefaultPageLimit
	}
	if limit > usecase.MaxPageLimit {
		limit = usecase.MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
