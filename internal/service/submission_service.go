package service

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/workflow"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type CreateSubmissionRequest struct {
	ClaimPackUUID string `json:"claimPackUuid" binding:"required,uuid"`
}

type SubmitRequest struct {
	GatewayPassword string `json:"gatewayPassword" binding:"required"`
}

type SubmissionOutcomeRequest struct {
	Status     string `json:"status" binding:"required,oneof=accepted rejected"`
	ReceiptURL string `json:"receiptUrl" binding:"omitempty,url"`
	IRMark     string `json:"irMark"`
}

type SubmissionService interface {
	ListSubmissions(ctx context.Context, claimPackUUID string) ([]model.Submission, error)
	CreateSubmission(ctx context.Context, actor *model.TaxEngineUser, req CreateSubmissionRequest) (*model.Submission, error)
	Submit(ctx context.Context, actor *model.TaxEngineUser, id string, req SubmitRequest) (*model.Submission, error)
	RecordOutcome(ctx context.Context, actor *model.TaxEngineUser, id string, req SubmissionOutcomeRequest) (*model.Submission, error)
}

type submissionService struct {
	submissions   repository.SubmissionRepository
	claims        repository.ClaimRepository
	periods       repository.PeriodRepository
	settings      repository.SettingsRepository
	txManager     repository.TransactionManager
	audit         *AuditRecorder
	notifications NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

func NewSubmissionService(
	submissions repository.SubmissionRepository,
	claims repository.ClaimRepository,
	periods repository.PeriodRepository,
	settings repository.SettingsRepository,
	txManager repository.TransactionManager,
	audit *AuditRecorder,
	notifications NotificationService,
	logger *zap.Logger,
) SubmissionService {
	return &submissionService{
		submissions:   submissions,
		claims:        claims,
		periods:       periods,
		settings:      settings,
		txManager:     txManager,
		audit:         audit,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// NewReference returns a TE-YYYYMMDD-XXXXXX reference for date
func NewReference(date time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("TE-%s-%s", date.UTC().Format("20060102"), buf), nil
}

// irMark is a stand-in for the HMRC IRmark: a base32 SHA-1 digest of the reference and submit time
func irMark(reference string, at time.Time) string {
	sum := sha1.Sum([]byte(reference + "|" + at.UTC().Format(time.RFC3339Nano)))
	return base32.StdEncoding.EncodeToString(sum[:])
}

func (s *submissionService) ListSubmissions(ctx context.Context, claimPackUUID string) ([]model.Submission, error) {
	claimID, err := optionalUUID("claimPackUuid", claimPackUUID)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissions.List(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return subs, nil
}

func (s *submissionService) load(ctx context.Context, id string) (*model.Submission, error) {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	sub, err := s.submissions.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("Submission", err)
	}
	return sub, nil
}

func (s *submissionService) CreateSubmission(ctx context.Context, actor *model.TaxEngineUser, req CreateSubmissionRequest) (*model.Submission, error) {
	claimID, err := parseUUID("claimPackUuid", req.ClaimPackUUID)
	if err != nil {
		return nil, err
	}
	claim, err := s.claims.GetByUUID(ctx, claimID)
	if err != nil {
		return nil, lookupErr("Claim pack", err)
	}
	if claim.WorkflowStep != workflow.StepSubmission {
		return nil, conflict("Claim is not ready for submission (current step %s)", claim.WorkflowStep)
	}

	existing, err := s.submissions.List(ctx, &claim.UUID)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.Status != model.SubmissionRejected {
			return nil, conflict("Claim already has a %s submission %s", e.Status, e.Reference)
		}
	}

	sub := &model.Submission{
		ClaimPackID:       claim.ID,
		ClaimPackUUID:     claim.UUID,
		ClientCompanyID:   claim.ClientCompanyID,
		ClientCompanyUUID: claim.ClientCompanyUUID,
		Status:            model.SubmissionDraft,
	}

	// up to three attempts on a reference collision
	for attempt := 0; ; attempt++ {
		sub.Reference, err = NewReference(s.now())
		if err != nil {
			return nil, err
		}
		err = s.submissions.Create(ctx, sub)
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err) || attempt == 2 {
			return nil, err
		}
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionCreateSubmission,
		Detail:   "Created submission " + sub.Reference,
		Category: model.AuditSubmission,
		Actor:    actor,
		Claim:    claim,
	})
	return sub, nil
}

// Submit checks the Government Gateway password against the stored hash and
// marks the draft as submitted.
func (s *submissionService) Submit(ctx context.Context, actor *model.TaxEngineUser, id string, req SubmitRequest) (*model.Submission, error) {
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionDraft {
		return nil, conflict("Submission %s is already %s", sub.Reference, sub.Status)
	}

	gw, err := s.settings.GetGateway(ctx)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	if gw == nil || !gw.IsConnected {
		return nil, conflict("Government Gateway is not connected")
	}
	if bcrypt.CompareHashAndPassword([]byte(gw.PasswordHash), []byte(req.GatewayPassword)) != nil {
		return nil, newError(ErrForbidden, "Government Gateway password is incorrect")
	}

	claim, err := s.claims.GetByID(ctx, sub.ClaimPackID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub.Status = model.SubmissionSubmitted
	sub.SubmittedAt = &now
	sub.IRMark = irMark(sub.Reference, now)
	_, sub.SubmittedByUUID = actorRefs(actor)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.submissions.Update(txCtx, sub); err != nil {
			return err
		}
		return stepApplier{claims: s.claims, periods: s.periods}.promotePeriod(txCtx, claim.AccountingPeriodUUID, model.PeriodSubmitted)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionSubmitSubmission,
		Detail:   fmt.Sprintf("Submitted %s to HMRC as gateway user %s", sub.Reference, gw.GatewayUserID),
		Category: model.AuditSubmission,
		Actor:    actor,
		Claim:    claim,
	})
	return sub, nil
}

func (s *submissionService) RecordOutcome(ctx context.Context, actor *model.TaxEngineUser, id string, req SubmissionOutcomeRequest) (*model.Submission, error) {
	status := strings.ToLower(strings.TrimSpace(req.Status))
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionSubmitted {
		return nil, conflict("Submission %s is %s, not submitted", sub.Reference, sub.Status)
	}

	claim, err := s.claims.GetByID(ctx, sub.ClaimPackID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub.Status = status
	sub.DecidedAt = &now
	if req.ReceiptURL != "" {
		sub.ReceiptURL = strings.TrimSpace(req.ReceiptURL)
	}
	if req.IRMark != "" {
		sub.IRMark = strings.TrimSpace(req.IRMark)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.submissions.Update(txCtx, sub); err != nil {
			return err
		}
		if status != model.SubmissionAccepted {
			return nil
		}
		claim.MarkStageCompleted(model.StageSubmit, now)
		claim.Progress = 100
		claim.UpdatedAt = now
		return s.claims.Update(txCtx, claim)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionRecordSubmissionState,
		Detail:   fmt.Sprintf("HMRC %s submission %s", status, sub.Reference),
		Category: model.AuditSubmission,
		Actor:    actor,
		Claim:    claim,
	})
	s.notifications.Notify(ctx, nil, "Submission "+status,
		fmt.Sprintf("HMRC %s submission %s", status, sub.Reference), "/submissions/"+sub.UUID.String())
	return sub, nil
}
