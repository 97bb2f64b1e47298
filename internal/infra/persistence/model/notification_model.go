package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationModel is the GORM-specific struct for the 'notifications' table.
// read_at is written once, in the same statement that flips read.
type NotificationModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecipientID uuid.UUID      `gorm:"type:uuid;not null;index:idx_notifications_recipient_created,priority:1"`
	SenderID    uuid.UUID      `gorm:"type:uuid;not null"`
	Type        string         `gorm:"type:varchar(20);not null"`
	Message     string         `gorm:"type:text;not null"`
	Data        datatypes.JSON `gorm:"type:jsonb"`
	Read        bool           `gorm:"not null;default:false"`
	ReadAt      *time.Time
	CreatedAt   time.Time `gorm:"index:idx_notifications_recipient_created,priority:2,sort:desc"`
}

// TableName explicitly sets the table name for GORM.
func (NotificationModel) TableName() string {
	return "notifications"
}
