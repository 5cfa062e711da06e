package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/period"
	"taxengine/internal/repository"
	"taxengine/internal/workflow"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateClaimRequest struct {
	ClientCompanyUUID    string `json:"clientCompanyUuid" binding:"required,uuid"`
	AccountingPeriodUUID string `json:"accountingPeriodUuid" binding:"required,uuid"`
}

type AdjustmentRequest struct {
	Category    string          `json:"category" binding:"required,oneof=STAFF_COSTS SUBCONTRACTORS CONSUMABLES SOFTWARE EXTERNALLY_PROVIDED_WORKERS OTHER"`
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// WorkflowView is a claim pack with its steps annotated for display
type WorkflowView struct {
	Claim *model.ClaimPack    `json:"claim"`
	Steps []workflow.StepView `json:"steps"`
	Next  *workflow.Step      `json:"next"`
}

type ClaimService interface {
	ListClaims(ctx context.Context, clientCompanyUUID, stage string) ([]model.ClaimPack, error)
	CreateClaim(ctx context.Context, actor *model.TaxEngineUser, req CreateClaimRequest) (*model.ClaimPack, error)
	GetClaim(ctx context.Context, id string) (*model.ClaimPack, error)
	GetWorkflow(ctx context.Context, id string) (*WorkflowView, error)
	AdvanceWorkflow(ctx context.Context, actor *model.TaxEngineUser, id, step string) (*WorkflowView, error)
	ListAdjustments(ctx context.Context, id string) ([]model.ClaimAdjustment, error)
	AddAdjustment(ctx context.Context, actor *model.TaxEngineUser, id string, req AdjustmentRequest) (*model.ClaimAdjustment, *model.ClaimPack, error)
}

type claimService struct {
	claims    repository.ClaimRepository
	companies repository.ClientRepository
	periods   repository.PeriodRepository
	jobs      JobService
	txManager repository.TransactionManager
	applier   stepApplier
	audit     *AuditRecorder
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewClaimService(
	claims repository.ClaimRepository,
	companies repository.ClientRepository,
	periods repository.PeriodRepository,
	jobs JobService,
	txManager repository.TransactionManager,
	audit *AuditRecorder,
	publisher Publisher,
	logger *zap.Logger,
) ClaimService {
	if publisher == nil {
		publisher = NopPublisher
	}
	return &claimService{
		claims:    claims,
		companies: companies,
		periods:   periods,
		jobs:      jobs,
		txManager: txManager,
		applier:   stepApplier{claims: claims, periods: periods},
		audit:     audit,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *claimService) ListClaims(ctx context.Context, clientCompanyUUID, stage string) ([]model.ClaimPack, error) {
	clientID, err := optionalUUID("clientCompanyUuid", clientCompanyUUID)
	if err != nil {
		return nil, err
	}
	filter := repository.ClaimFilter{ClientCompanyUUID: clientID}
	if stage != "" {
		filter.Stage = model.ClaimStage(strings.ToUpper(stage))
		if !filter.Stage.Valid() {
			return nil, validationError("unknown claim stage %q", stage)
		}
	}

	claims, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		claims = []model.ClaimPack{}
	}
	return claims, nil
}

func (s *claimService) CreateClaim(ctx context.Context, actor *model.TaxEngineUser, req CreateClaimRequest) (*model.ClaimPack, error) {
	clientID, err := parseUUID("clientCompanyUuid", req.ClientCompanyUUID)
	if err != nil {
		return nil, err
	}
	periodID, err := parseUUID("accountingPeriodUuid", req.AccountingPeriodUUID)
	if err != nil {
		return nil, err
	}

	client, err := s.companies.GetByUUID(ctx, clientID)
	if err != nil {
		return nil, lookupErr("Client", err)
	}
	p, err := s.periods.GetByUUID(ctx, periodID)
	if err != nil {
		return nil, lookupErr("Accounting period", err)
	}
	if p.ClientCompanyID != client.ID {
		return nil, validationError("Accounting period does not belong to this client")
	}

	if _, err := s.claims.GetByPeriodID(ctx, p.ID); err == nil {
		return nil, conflict("A claim pack already exists for this accounting period")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	first := workflow.First()
	claim := &model.ClaimPack{
		ClientCompanyID:      client.ID,
		ClientCompanyUUID:    client.UUID,
		AccountingPeriodID:   p.ID,
		AccountingPeriodUUID: p.UUID,
		CurrentStage:         first.Stage,
		WorkflowStep:         first.Key,
		ClaimValue:           decimal.Zero,
	}
	claim.CreatedByID, claim.CreatedByUUID = actorRefs(actor)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.claims.Create(txCtx, claim); err != nil {
			return err
		}
		return s.applier.promotePeriod(txCtx, p.UUID, first.PeriodStatus)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflict("A claim pack already exists for this accounting period")
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionCreateClaim,
		Detail:   fmt.Sprintf("Created claim pack for %s period ending %s", client.Name, p.EndDate.Format(period.DateLayout)),
		Category: model.AuditClaim,
		Actor:    actor,
		Client:   client,
		Claim:    claim,
	})
	return claim, nil
}

func (s *claimService) GetClaim(ctx context.Context, id string) (*model.ClaimPack, error) {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	claim, err := s.claims.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("Claim pack", err)
	}
	return claim, nil
}

func workflowView(claim *model.ClaimPack) *WorkflowView {
	view := &WorkflowView{Claim: claim, Steps: workflow.Describe(claim.WorkflowStep)}
	if next, ok := workflow.Next(claim.WorkflowStep); ok {
		view.Next = &next
	}
	return view
}

func (s *claimService) GetWorkflow(ctx context.Context, id string) (*WorkflowView, error) {
	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	return workflowView(claim), nil
}

// AdvanceWorkflow moves the claim to step. Entering a job-backed step queues its job.
func (s *claimService) AdvanceWorkflow(ctx context.Context, actor *model.TaxEngineUser, id, step string) (*WorkflowView, error) {
	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := workflow.CanAdvance(claim.WorkflowStep, step); err != nil {
		switch {
		case errors.Is(err, workflow.ErrUnknownStep):
			return nil, validationError("%s", err.Error())
		default:
			return nil, conflict("Cannot move claim from %s to %s: %s", claim.WorkflowStep, step, err.Error())
		}
	}
	if step == claim.WorkflowStep {
		return workflowView(claim), nil
	}

	target, _ := workflow.Lookup(step)
	from := claim.WorkflowStep
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.applier.apply(txCtx, claim, target, s.now()); err != nil {
			return err
		}
		if target.Job != "" {
			_, err := s.jobs.Enqueue(txCtx, actor, claim, target.Job)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionAdvanceWorkflow,
		Detail:   fmt.Sprintf("Workflow %s -> %s", from, step),
		Category: model.AuditClaim,
		Actor:    actor,
		Claim:    claim,
	})
	s.publisher.Publish(nil, EventClaimUpdated, claim)
	return workflowView(claim), nil
}

func (s *claimService) ListAdjustments(ctx context.Context, id string) ([]model.ClaimAdjustment, error) {
	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	adjs, err := s.claims.ListAdjustments(ctx, claim.ID)
	if err != nil {
		return nil, err
	}
	if adjs == nil {
		adjs = []model.ClaimAdjustment{}
	}
	return adjs, nil
}

// AddAdjustment records an adjustment and recomputes the claim value as the sum of all adjustments
func (s *claimService) AddAdjustment(ctx context.Context, actor *model.TaxEngineUser, id string, req AdjustmentRequest) (*model.ClaimAdjustment, *model.ClaimPack, error) {
	category := strings.ToUpper(strings.TrimSpace(req.Category))
	if req.Amount.IsZero() {
		return nil, nil, validationError("amount must not be zero")
	}

	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if claim.CurrentStage.Rank() >= model.StageSubmit.Rank() {
		return nil, nil, conflict("Claim has reached submission and can no longer be adjusted")
	}

	adj := &model.ClaimAdjustment{
		ClaimPackID:   claim.ID,
		ClaimPackUUID: claim.UUID,
		Category:      category,
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount.Round(2),
	}
	_, adj.CreatedByUUID = actorRefs(actor)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.claims.CreateAdjustment(txCtx, adj); err != nil {
			return err
		}
		all, err := s.claims.ListAdjustments(txCtx, claim.ID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, a := range all {
			total = total.Add(a.Amount)
		}
		claim.ClaimValue = total
		claim.UpdatedAt = s.now()
		return s.claims.Update(txCtx, claim)
	})
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionAddAdjustment,
		Detail:   fmt.Sprintf("%s adjustment of %s: %s", category, adj.Amount.StringFixed(2), adj.Description),
		Category: model.AuditClaim,
		Actor:    actor,
		Claim:    claim,
	})
	return adj, claim, nil
}
