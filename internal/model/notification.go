package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message. A nil recipient means every user sees it.
type Notification struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	UUID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	RecipientID   *uint      `gorm:"index" json:"-"`
	RecipientUUID *uuid.UUID `gorm:"type:uuid;index" json:"recipientUuid"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Message       string     `gorm:"type:text" json:"message"`
	Link          string     `gorm:"type:varchar(255)" json:"link"`
	IsRead        bool       `gorm:"not null;default:false;index" json:"isRead"`
	CreatedAt     time.Time  `json:"createdAt"`
}
