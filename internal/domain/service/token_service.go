package service

import (
	"time"

	"github.com/google/uuid"
)

// TokenType separates access from refresh tokens inside the claims.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	AccountID uuid.UUID
	Type      TokenType
	ID        string // Unique per token, so two pairs issued in the same second differ.
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenService issues and verifies signed tokens.
// Verify methods return credential failures (missing, invalid or expired).
type TokenService interface {
	// IssuePair signs a fresh access and refresh token for accountID.
	IssuePair(accountID uuid.UUID) (*TokenPair, error)

	// VerifyAccess checks signature, expiry and type of an access token.
	VerifyAccess(token string) (*TokenClaims, error)

	// VerifyRefresh checks signature, expiry and type of a refresh token.
	VerifyRefresh(token string) (*TokenClaims, error)

	// Fingerprint is the value persisted for the single valid refresh token.
	Fingerprint(token string) string

	// AccessTTL and RefreshTTL drive cookie lifetimes.
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}
