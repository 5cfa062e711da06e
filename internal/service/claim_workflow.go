package service

import (
	"context"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/workflow"

	"github.com/google/uuid"
)

// stepApplier moves a claim pack onto a workflow step and raises the claim
// stage and the period status to the step's minimums. Neither ever regresses.
type stepApplier struct {
	claims  repository.ClaimRepository
	periods repository.PeriodRepository
}

func (a stepApplier) apply(ctx context.Context, claim *model.ClaimPack, step workflow.Step, now time.Time) error {
	claim.WorkflowStep = step.Key
	claim.Progress = workflow.Progress(step.Key)

	if step.Stage.Rank() > claim.CurrentStage.Rank() {
		for _, stage := range model.ClaimStages() {
			if stage.Rank() < step.Stage.Rank() {
				claim.MarkStageCompleted(stage, now)
			}
		}
		claim.CurrentStage = step.Stage
	}
	claim.UpdatedAt = now
	if err := a.claims.Update(ctx, claim); err != nil {
		return err
	}
	return a.promotePeriod(ctx, claim.AccountingPeriodUUID, step.PeriodStatus)
}

func (a stepApplier) promotePeriod(ctx context.Context, periodUUID uuid.UUID, status model.PeriodStatus) error {
	p, err := a.periods.GetByUUID(ctx, periodUUID)
	if err != nil {
		return err
	}
	if status.Rank() <= p.Status.Rank() {
		return nil
	}
	p.Status = status
	return a.periods.Update(ctx, p)
}
