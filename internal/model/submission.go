package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus values
const (
	SubmissionDraft     = "draft"
	SubmissionSubmitted = "submitted"
	SubmissionAccepted  = "accepted"
	SubmissionRejected  = "rejected"
)

// Submission records one HMRC submission attempt for a claim pack
type Submission struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	UUID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	Reference         string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"reference"`
	ClaimPackID       uint       `gorm:"not null;index" json:"-"`
	ClaimPackUUID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"claimPackUuid"`
	ClientCompanyID   uint       `gorm:"not null;index" json:"-"`
	ClientCompanyUUID uuid.UUID  `gorm:"type:uuid;not null;index" json:"clientCompanyUuid"`
	Status            string     `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	ReceiptURL        string     `gorm:"type:text" json:"receiptUrl"`
	IRMark            string     `gorm:"column:ir_mark;type:varchar(64)" json:"irMark"`
	SubmittedByUUID   *uuid.UUID `gorm:"type:uuid" json:"submittedByUuid"`
	SubmittedAt       *time.Time `json:"submittedAt"`
	DecidedAt         *time.Time `json:"decidedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
