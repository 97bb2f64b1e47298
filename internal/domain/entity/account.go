// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Account is the authenticated principal. Only the credential fields are owned here;
// profile data lives with the surrounding application.
type Account struct {
	ID                 uuid.UUID `json:"id"`           // The Global Unique Identifier (GUID) for the account.
	Email              string    `json:"email"`        // Login identity.
	DisplayName        string    `json:"display_name"` // Name shown to other accounts.
	PasswordHash       string    `json:"-"`            // bcrypt hash of the credential. Never serialized.
	RefreshFingerprint *string   `json:"-"`            // SHA-256 of the single valid refresh token, nil when revoked.
	CreatedAt          time.Time `json:"created_at"`   // Timestamp of when the account was created.
	UpdatedAt          time.Time `json:"updated_at"`   // Timestamp of the last modification.
}

// Identity is the account as seen by request handlers, without credential material.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

// Identity strips the credential fields.
func (a *Account) Identity() *Identity {
	if a == nil {
		return nil
	}

	return &Identity{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
	}
}
