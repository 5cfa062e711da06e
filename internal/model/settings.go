package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TemplateKind values
const (
	TemplateEmail      = "email"
	TemplateLetter     = "letter"
	TemplateEngagement = "engagement"
)

// Template is a reusable document or message body
type Template struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UUID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Kind      string    `gorm:"type:varchar(20);not null;index" json:"kind"`
	Subject   string    `gorm:"type:varchar(255)" json:"subject"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GatewayConfig holds the workspace's Government Gateway credentials.
// There is at most one row.
type GatewayConfig struct {
	ID              uint       `gorm:"primaryKey" json:"-"`
	UUID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	GatewayUserID   string     `gorm:"type:varchar(50);not null" json:"gatewayUserId"`
	PasswordHash    string     `gorm:"type:varchar(255);not null" json:"-"`
	AgentReference  string     `gorm:"type:varchar(50)" json:"agentReference"`
	IsConnected     bool       `gorm:"not null;default:false" json:"isConnected"`
	ConnectedAt     *time.Time `json:"connectedAt"`
	ConnectedByUUID *uuid.UUID `gorm:"type:uuid" json:"connectedByUuid"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// BillingProfile is the workspace subscription record. There is at most one row.
type BillingProfile struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	UUID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	Plan         string          `gorm:"type:varchar(30);not null;default:'starter'" json:"plan"`
	Seats        int             `gorm:"not null;default:1" json:"seats"`
	BillingEmail string          `gorm:"type:varchar(255)" json:"billingEmail"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"monthlyPrice"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
