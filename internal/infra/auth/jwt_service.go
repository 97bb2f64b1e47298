// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"herald/config"
	"herald/internal/domain/credential"
	"herald/internal/domain/service"
	"herald/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingSecrets is returned at startup when either signing secret is empty.
	ErrMissingSecrets = errors.New("jwt secrets must be provided")
	// ErrSharedSecret is returned at startup when both token kinds share a secret.
	ErrSharedSecret = errors.New("access and refresh secrets must differ")
)

// claims is the signed payload. Typ keeps a refresh token from passing as an access token.
type claims struct {
	Type service.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  []byte        // Secret key for signing access tokens.
	refreshSecret []byte        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService. It fails closed on missing or shared secrets.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	return newJWTService(cfg, time.Now)
}

func newJWTService(cfg *config.Config, now func() time.Time) (*jwtService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, ErrMissingSecrets
	}
	if cfg.SecretKey.Access == cfg.SecretKey.Refresh {
		return nil, ErrSharedSecret
	}

	accessTTL, refreshTTL := 15*time.Minute, 7*24*time.Hour
	if cfg.Auth != nil {
		if cfg.Auth.AccessTTL > 0 {
			accessTTL = cfg.Auth.AccessTTL
		}
		if cfg.Auth.RefreshTTL > 0 {
			refreshTTL = cfg.Auth.RefreshTTL
		}
	}

	return &jwtService{
		accessSecret:  []byte(cfg.SecretKey.Access),
		refreshSecret: []byte(cfg.SecretKey.Refresh),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}, nil
}

// IssuePair creates a new access token and refresh token for an account.
func (s *jwtService) IssuePair(accountID uuid.UUID) (*service.TokenPair, error) {
	issuedAt := s.now()

	access, accessExp, err := s.sign(accountID, service.TokenTypeAccess, issuedAt, s.accessTTL, s.accessSecret)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.sign(accountID, service.TokenTypeRefresh, issuedAt, s.refreshTTL, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &service.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token.
func (s *jwtService) VerifyAccess(token string) (*service.TokenClaims, error) {
	return s.verify(token, service.TokenTypeAccess, s.accessSecret)
}

// VerifyRefresh validates a refresh token.
func (s *jwtService) VerifyRefresh(token string) (*service.TokenClaims, error) {
	return s.verify(token, service.TokenTypeRefresh, s.refreshSecret)
}

// Fingerprint returns the hex SHA-256 of the raw token.
func (s *jwtService) Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

func (s *jwtService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *jwtService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) sign(accountID uuid.UUID, tokenType service.TokenType, issuedAt time.Time, ttl time.Duration, secret []byte) (string, time.Time, error) {
	expiresAt := issuedAt.Add(ttl)
	c := claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", time.Time{}, errors.Wrapf(err, "sign %s token", tokenType)
	}

	return signed, expiresAt, nil
}

func (s *jwtService) verify(raw string, want service.TokenType, secret []byte) (*service.TokenClaims, error) {
	if raw == "" {
		return nil, credential.ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var c claims
	if _, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, credential.New(credential.ReasonExpired, err)
		}

		return nil, credential.New(credential.ReasonMalformed, err)
	}

	if c.Type != want {
		return nil, credential.New(credential.ReasonMalformed, errors.Errorf("token type %q, want %q", c.Type, want))
	}

	accountID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, credential.New(credential.ReasonMalformed, errors.Wrap(err, "parse subject"))
	}

	out := &service.TokenClaims{
		AccountID: accountID,
		Type:      c.Type,
		ID:        c.ID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}

	return out, nil
}
