// Package model holds the GORM-specific table structs.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel is the GORM-specific struct for the 'accounts' table.
type AccountModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email              string    `gorm:"type:varchar(320);not null;uniqueIndex"`
	DisplayName        string    `gorm:"type:varchar(100);not null"`
	PasswordHash       string    `gorm:"type:text;not null"`
	RefreshFingerprint *string   `gorm:"type:char(64)"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
