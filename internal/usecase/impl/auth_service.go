// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"

	deliverycontext "herald/internal/delivery/context"
	"herald/internal/domain/credential"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/domain/repository"
	"herald/internal/domain/service"
	"herald/internal/errors"
	"herald/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// AuthService implements AuthUsecase and IdentityResolver.
type AuthService struct {
	accountRepo  repository.AccountRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	logger       *slog.Logger
}

var (
	_ usecase.AuthUsecase      = (*AuthService)(nil)
	_ usecase.IdentityResolver = (*AuthService)(nil)
)

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	AccountRepo  repository.AccountRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewAuthService is the constructor for AuthService. It serves both AuthUsecase and IdentityResolver.
func NewAuthService(params AuthServiceParams) *AuthService {
	return &AuthService{
		accountRepo:  params.AccountRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *AuthService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates the account and logs it in.
func (srv *AuthService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	account := &entity.Account{
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: hash,
	}
	if err := srv.accountRepo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return nil, errors.Wrap(domainerrors.ErrAccountAlreadyExists, "register")
		}

		return nil, errors.Wrap(err, "failed to create account during registration")
	}

	pair, err := srv.issue(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	srv.log(ctx).Debug("Registration completed", slog.String("account_id", account.ID.String()))

	return &usecase.AuthOutput{Account: account.Identity(), Tokens: pair}, nil
}

// Login verifies the credential hash, then issues a pair.
func (srv *AuthService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting login", slog.String("email", email))

	account, err := srv.accountRepo.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("cause", "unknown email"))

			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}

		return nil, errors.Wrap(err, "failed to find account for login")
	}

	// bcrypt is CPU-bound; nothing is held open while it runs.
	if !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("cause", "password mismatch"))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	pair, err := srv.issue(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	srv.log(ctx).Debug("Account logged in", slog.String("account_id", account.ID.String()))

	return &usecase.AuthOutput{Account: account.Identity(), Tokens: pair}, nil
}

// issue mints a pair and overwrites the stored fingerprint, which invalidates
// any refresh token handed out earlier.
func (srv *AuthService) issue(ctx context.Context, accountID uuid.UUID) (*service.TokenPair, error) {
	pair, err := srv.tokenService.IssuePair(accountID)
	if err != nil {
		srv.log(ctx).Error("Failed to issue tokens", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	fingerprint := srv.tokenService.Fingerprint(pair.RefreshToken)
	if err := srv.accountRepo.SetRefreshFingerprint(ctx, accountID, &fingerprint); err != nil {
		return nil, errors.Wrap(err, "failed to persist refresh fingerprint")
	}

	return pair, nil
}

// Refresh verifies the token, checks it against the stored fingerprint and
// swaps in the new one with a compare-and-swap on the old value.
func (srv *AuthService) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	claims, err := srv.tokenService.VerifyRefresh(refreshToken)
	if err != nil {
		srv.log(ctx).Info("Refresh rejected", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.FromCredential(err), err.Error())
	}

	account, err := srv.accountRepo.FindAccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(domainerrors.ErrTokenInvalid, "refresh for unknown account")
		}

		return nil, errors.Wrap(err, "failed to load account for refresh")
	}

	presented := srv.tokenService.Fingerprint(refreshToken)
	if account.RefreshFingerprint == nil || *account.RefreshFingerprint != presented {
		srv.log(ctx).Warn("Refresh with rotated or revoked token", slog.String("account_id", account.ID.String()))

		return nil, errors.Wrap(domainerrors.ErrTokenRotated, credential.ErrRotatedOrRevokedToken.Error())
	}

	pair, err := srv.tokenService.IssuePair(account.ID)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	next := srv.tokenService.Fingerprint(pair.RefreshToken)
	if err := srv.accountRepo.RotateRefreshFingerprint(ctx, account.ID, presented, next); err != nil {
		if errors.Is(err, repository.ErrFingerprintMismatch) {
			srv.log(ctx).Warn("Lost refresh race", slog.String("account_id", account.ID.String()))

			return nil, errors.Wrap(domainerrors.ErrTokenRotated, "concurrent refresh")
		}

		return nil, errors.Wrap(err, "failed to rotate refresh fingerprint")
	}
	srv.log(ctx).Debug("Refresh token rotated", slog.String("account_id", account.ID.String()))

	return pair, nil
}

// Logout clears the fingerprint. Calling it twice is harmless.
func (srv *AuthService) Logout(ctx context.Context, accountID uuid.UUID) error {
	if err := srv.accountRepo.SetRefreshFingerprint(ctx, accountID, nil); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return errors.Wrap(domainerrors.ErrAccountNotFound, "logout")
		}

		return errors.Wrap(err, "failed to revoke refresh fingerprint")
	}
	srv.log(ctx).Info("Account logged out", slog.String("account_id", accountID.String()))

	return nil
}

// Me returns the identity of accountID.
func (srv *AuthService) Me(ctx context.Context, accountID uuid.UUID) (*entity.Identity, error) {
	account, err := srv.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "me")
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	return account.Identity(), nil
}

// Authenticate verifies an access token and resolves its account. A token
// for an account that no longer exists is invalid.
func (srv *AuthService) Authenticate(ctx context.Context, accessToken string) (*entity.Identity, error) {
	claims, err := srv.tokenService.VerifyAccess(accessToken)
	if err != nil {
		return nil, errors.Wrap(domainerrors.FromCredential(err), err.Error())
	}

	account, err := srv.accountRepo.FindAccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(domainerrors.ErrTokenInvalid, "token for unknown account")
		}

		return nil, errors.Wrap(err, "failed to resolve identity")
	}

	return account.Identity(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
