package model

import (
	"time"

	"github.com/google/uuid"
)

// JobKind values
const (
	JobCT600Extraction = "CT600_EXTRACTION"
	JobHMRCValidation  = "HMRC_VALIDATION"
)

// JobStatus values. succeeded and failed are terminal.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// ProcessingJob is a persisted background task attached to a claim pack
type ProcessingJob struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	UUID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	ClaimPackID   uint       `gorm:"not null;index" json:"-"`
	ClaimPackUUID uuid.UUID  `gorm:"type:uuid;not null;index" json:"claimPackUuid"`
	Kind          string     `gorm:"type:varchar(30);not null" json:"kind"`
	Status        string     `gorm:"type:varchar(20);not null;default:'queued';index" json:"status"`
	Progress      int        `gorm:"not null;default:0" json:"progress"`
	Error         string     `gorm:"type:text" json:"error,omitempty"`
	RequestedBy   *uuid.UUID `gorm:"type:uuid" json:"requestedBy"`
	StartedAt     *time.Time `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Terminal reports whether the job has finished
func (j *ProcessingJob) Terminal() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}
