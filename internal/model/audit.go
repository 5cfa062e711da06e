package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditCategory groups audit rows for filtering
type AuditCategory string

const (
	AuditAuth       AuditCategory = "AUTH"
	AuditClient     AuditCategory = "CLIENT"
	AuditPeriod     AuditCategory = "PERIOD"
	AuditClaim      AuditCategory = "CLAIM"
	AuditSubmission AuditCategory = "SUBMISSION"
	AuditSettings   AuditCategory = "SETTINGS"
	AuditSystem     AuditCategory = "SYSTEM"
)

// Valid reports whether c is a known category
func (c AuditCategory) Valid() bool {
	switch c {
	case AuditAuth, AuditClient, AuditPeriod, AuditClaim, AuditSubmission, AuditSettings, AuditSystem:
		return true
	}
	return false
}

const (
	ActionLogin                 = "USER_LOGIN"
	ActionCreateProfile         = "CREATE_PROFILE"
	ActionInviteUser            = "INVITE_USER"
	ActionUpdateUser            = "UPDATE_USER"
	ActionCreateClient          = "CREATE_CLIENT"
	ActionUpdateClient          = "UPDATE_CLIENT"
	ActionImportClients         = "IMPORT_CLIENTS"
	ActionCreatePeriod          = "CREATE_ACCOUNTING_PERIOD"
	ActionGeneratePeriods       = "GENERATE_ACCOUNTING_PERIODS"
	ActionUpdatePeriodStatus    = "UPDATE_PERIOD_STATUS"
	ActionCreateClaim           = "CREATE_CLAIM_PACK"
	ActionAdvanceWorkflow       = "ADVANCE_WORKFLOW"
	ActionAddAdjustment         = "ADD_ADJUSTMENT"
	ActionStartJob              = "START_PROCESSING_JOB"
	ActionFinishJob             = "FINISH_PROCESSING_JOB"
	ActionCreateSubmission      = "CREATE_SUBMISSION"
	ActionSubmitSubmission      = "SUBMIT_TO_HMRC"
	ActionRecordSubmissionState = "RECORD_SUBMISSION_OUTCOME"
	ActionSaveTemplate          = "SAVE_TEMPLATE"
	ActionDeleteTemplate        = "DELETE_TEMPLATE"
	ActionSaveGateway           = "SAVE_GATEWAY_CREDENTIALS"
	ActionDisconnectGateway     = "DISCONNECT_GATEWAY"
	ActionSaveBilling           = "SAVE_BILLING"
	ActionPeriodRollover        = "PERIOD_ROLLOVER"
)

// AuditLog is an append-only event record. Rows are never updated or deleted.
type AuditLog struct {
	ID                uint          `gorm:"primaryKey" json:"-"`
	UUID              uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	Action            string        `gorm:"type:varchar(50);not null;index" json:"action"`
	Detail            string        `gorm:"type:text" json:"detail"`
	Category          AuditCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	ActorID           *uint         `json:"-"`
	ActorUUID         *uuid.UUID    `gorm:"type:uuid;index" json:"actorUuid"`
	ClientCompanyID   *uint         `json:"-"`
	ClientCompanyUUID *uuid.UUID    `gorm:"type:uuid;index" json:"clientCompanyUuid"`
	ClaimPackID       *uint         `json:"-"`
	ClaimPackUUID     *uuid.UUID    `gorm:"type:uuid;index" json:"claimPackUuid"`
	Timestamp         time.Time     `gorm:"not null;index" json:"timestamp"`
}
