package repository

import (
	"context"

	"herald/internal/domain/entity"
	"herald/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for device persistence.
var (
	// ErrDeviceNotFound is returned when a device is not found.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDuplicateDevice is returned when trying to create a device that already exists.
	ErrDuplicateDevice = errors.New("device already exists")
)

// DeviceRepository defines the interface for device-related database operations.
type DeviceRepository interface {
	// CreateDevice persists a new device for an account.
	CreateDevice(ctx context.Context, device *entity.Device) error

	// FindDeviceByID retrieves a device by its unique ID.
	FindDeviceByID(ctx context.Context, id uuid.UUID) (*entity.Device, error)

	// FindDevicesByAccount retrieves all devices for an account (including inactive).
	FindDevicesByAccount(ctx context.Context, accountID uuid.UUID) ([]*entity.Device, error)

	// FindActiveDevicesByAccount retrieves the devices push should target.
	FindActiveDevicesByAccount(ctx context.Context, accountID uuid.UUID) ([]*entity.Device, error)

	// UpdateFCMToken updates the FCM token for a specific device and reactivates it.
	UpdateFCMToken(ctx context.Context, deviceID uuid.UUID, fcmToken string) error

	// DeactivateDevice marks a device inactive.
	DeactivateDevice(ctx context.Context, id uuid.UUID) error

	// DeactivateByFCMTokens marks every device holding one of tokens inactive.
	DeactivateByFCMTokens(ctx context.Context, tokens []string) error
}
