package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimStage is ordered from UPLOAD to SUBMIT
type ClaimStage string

const (
	StageUpload      ClaimStage = "UPLOAD"
	StageScanExtract ClaimStage = "SCAN_EXTRACT"
	StageBuildCT600  ClaimStage = "BUILD_CT600"
	StageReview      ClaimStage = "REVIEW"
	StageSubmit      ClaimStage = "SUBMIT"
)

var claimStageOrder = []ClaimStage{StageUpload, StageScanExtract, StageBuildCT600, StageReview, StageSubmit}

// Rank returns the position of s, or -1 if unknown
func (s ClaimStage) Rank() int {
	for i, v := range claimStageOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage
func (s ClaimStage) Valid() bool { return s.Rank() >= 0 }

// ClaimStages lists all stages in order
func ClaimStages() []ClaimStage {
	out := make([]ClaimStage, len(claimStageOrder))
	copy(out, claimStageOrder)
	return out
}

// ClaimPack tracks the preparation of one claim for a company/period
type ClaimPack struct {
	ID                   uint            `gorm:"primaryKey" json:"-"`
	UUID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	ClientCompanyID      uint            `gorm:"not null;index" json:"-"`
	ClientCompanyUUID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"clientCompanyUuid"`
	AccountingPeriodID   uint            `gorm:"not null;uniqueIndex" json:"-"`
	AccountingPeriodUUID uuid.UUID       `gorm:"type:uuid;not null;index" json:"accountingPeriodUuid"`
	CurrentStage         ClaimStage      `gorm:"type:varchar(20);not null;default:'UPLOAD';index" json:"currentStage"`
	WorkflowStep         string          `gorm:"type:varchar(30);not null;default:'scan-ct600'" json:"workflowStep"`
	Progress             int             `gorm:"not null;default:0" json:"progress"`
	ClaimValue           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"claimValue"`

	UploadCompletedAt      *time.Time `json:"uploadCompletedAt"`
	ScanExtractCompletedAt *time.Time `json:"scanExtractCompletedAt"`
	BuildCT600CompletedAt  *time.Time `gorm:"column:build_ct600_completed_at" json:"buildCt600CompletedAt"`
	ReviewCompletedAt      *time.Time `json:"reviewCompletedAt"`
	SubmittedAt            *time.Time `json:"submittedAt"`

	CreatedByID   *uint      `json:"-"`
	CreatedByUUID *uuid.UUID `gorm:"type:uuid" json:"createdByUuid"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarkStageCompleted stamps the completion time of stage if it is not stamped yet
func (c *ClaimPack) MarkStageCompleted(stage ClaimStage, at time.Time) {
	var slot **time.Time
	switch stage {
	case StageUpload:
		slot = &c.UploadCompletedAt
	case StageScanExtract:
		slot = &c.ScanExtractCompletedAt
	case StageBuildCT600:
		slot = &c.BuildCT600CompletedAt
	case StageReview:
		slot = &c.ReviewCompletedAt
	case StageSubmit:
		slot = &c.SubmittedAt
	default:
		return
	}
	if *slot == nil {
		t := at
		*slot = &t
	}
}

// AdjustmentCategory values
const (
	AdjustmentStaffCosts      = "STAFF_COSTS"
	AdjustmentSubcontractors  = "SUBCONTRACTORS"
	AdjustmentConsumables     = "CONSUMABLES"
	AdjustmentSoftware        = "SOFTWARE"
	AdjustmentExternalWorkers = "EXTERNALLY_PROVIDED_WORKERS"
	AdjustmentOther           = "OTHER"
)

// ClaimAdjustment is a manual change to the qualifying expenditure of a claim
type ClaimAdjustment struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	UUID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	ClaimPackID   uint            `gorm:"not null;index" json:"-"`
	ClaimPackUUID uuid.UUID       `gorm:"type:uuid;not null;index" json:"claimPackUuid"`
	Category      string          `gorm:"type:varchar(40);not null" json:"category"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedByUUID *uuid.UUID      `gorm:"type:uuid" json:"createdByUuid"`
	CreatedAt     time.Time       `json:"createdAt"`
}
