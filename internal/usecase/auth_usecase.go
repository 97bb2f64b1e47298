// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"herald/internal/domain/entity"
	"herald/internal/domain/service"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to create an account.
type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"required,max=64"`
}

// LoginInput defines the data required for an account to log in.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Output DTOs ---

// AuthOutput is returned by register and login: the identity plus a fresh pair.
type AuthOutput struct {
	Account *entity.Identity   `json:"account"`
	Tokens  *service.TokenPair `json:"tokens"`
}

// AuthUsecase issues, rotates and revokes credentials.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*AuthOutput, error)
	Login(ctx context.Context, input *LoginInput) (*AuthOutput, error)

	// Refresh rotates the refresh token. Exactly one of several concurrent
	// refreshes of the same token succeeds; the rest fail as rotated.
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)

	// Logout revokes every outstanding refresh token of the account.
	Logout(ctx context.Context, accountID uuid.UUID) error

	Me(ctx context.Context, accountID uuid.UUID) (*entity.Identity, error)
}

// IdentityResolver turns an access token into the account it names.
// Both the request guard and the websocket handshake go through it.
type IdentityResolver interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.Identity, error)
}
