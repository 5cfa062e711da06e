package model

import (
	"time"

	"github.com/google/uuid"
)

// Role names a workspace role. Permissions per role live in internal/authz.
type Role string

const (
	RoleAdministrator  Role = "administrator"
	RoleClaimProcessor Role = "claim_processor"
)

// UserStatus values
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
)

// TaxEngineUser is the workspace profile linked 1:1 to an auth provider identity.
// AuthUserID stays nil while an invitation is pending.
type TaxEngineUser struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	UUID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	AuthUserID  *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"authUserId"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName    string     `gorm:"type:varchar(255)" json:"fullName"`
	Role        Role       `gorm:"type:varchar(30);not null;default:'claim_processor'" json:"role"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	LoginCount  int        `gorm:"not null;default:0" json:"loginCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
