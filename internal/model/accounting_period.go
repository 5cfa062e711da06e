package model

import (
	"time"

	"github.com/google/uuid"
)

// PeriodStatus is ordered: a period only ever moves forward through it
type PeriodStatus string

const (
	PeriodNotStarted PeriodStatus = "not_started"
	PeriodInProgress PeriodStatus = "in_progress"
	PeriodProofing   PeriodStatus = "proofing"
	PeriodSigned     PeriodStatus = "signed"
	PeriodIssued     PeriodStatus = "issued"
	PeriodSubmitted  PeriodStatus = "submitted"
)

var periodStatusOrder = []PeriodStatus{
	PeriodNotStarted, PeriodInProgress, PeriodProofing, PeriodSigned, PeriodIssued, PeriodSubmitted,
}

// Rank returns the position of s in the lifecycle, or -1 if unknown
func (s PeriodStatus) Rank() int {
	for i, v := range periodStatusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status
func (s PeriodStatus) Valid() bool { return s.Rank() >= 0 }

// PeriodStatuses lists the lifecycle in order
func PeriodStatuses() []PeriodStatus {
	out := make([]PeriodStatus, len(periodStatusOrder))
	copy(out, periodStatusOrder)
	return out
}

// AccountingPeriod is a date range belonging to one client company
type AccountingPeriod struct {
	ID                uint         `gorm:"primaryKey" json:"-"`
	UUID              uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	ClientCompanyID   uint         `gorm:"not null;index" json:"-"`
	ClientCompanyUUID uuid.UUID    `gorm:"type:uuid;not null;index" json:"clientCompanyUuid"`
	StartDate         time.Time    `gorm:"type:date;not null" json:"startDate"`
	EndDate           time.Time    `gorm:"type:date;not null;index" json:"endDate"`
	Status            PeriodStatus `gorm:"type:varchar(20);not null;default:'not_started';index" json:"status"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}
