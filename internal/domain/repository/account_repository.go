// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"herald/internal/domain/entity"
	"herald/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for account persistence.
var (
	// ErrAccountNotFound is returned when an account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount is returned when the email is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrFingerprintMismatch is returned when a rotation finds a different stored fingerprint.
	ErrFingerprintMismatch = errors.New("refresh fingerprint mismatch")
)

// AccountRepository defines the interface for account-related database operations.
type AccountRepository interface {
	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, account *entity.Account) error

	// FindAccountByID retrieves an account by its unique ID.
	FindAccountByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindAccountByEmail retrieves an account by its login email.
	FindAccountByEmail(ctx context.Context, email string) (*entity.Account, error)

	// SetRefreshFingerprint overwrites the stored fingerprint. A nil fingerprint revokes.
	SetRefreshFingerprint(ctx context.Context, id uuid.UUID, fingerprint *string) error

	// RotateRefreshFingerprint replaces expected with next in one conditional write.
	// It returns ErrFingerprintMismatch when the stored value is not expected.
	RotateRefreshFingerprint(ctx context.Context, id uuid.UUID, expected, next string) error
}
