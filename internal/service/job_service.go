package service

import (
	"context"
	"fmt"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"
	"taxengine/internal/workflow"

	"go.uber.org/zap"
)

// JobService owns processing job state. The jobs runner drives it through
// Pending, Begin, Progress and Finish, and fails Stale jobs with Finish.
type JobService interface {
	Enqueue(ctx context.Context, actor *model.TaxEngineUser, claim *model.ClaimPack, kind string) (*model.ProcessingJob, error)
	StartJob(ctx context.Context, actor *model.TaxEngineUser, claimID, kind string) (*model.ProcessingJob, error)
	GetJob(ctx context.Context, id string) (*model.ProcessingJob, error)

	Pending(ctx context.Context, limit int) ([]model.ProcessingJob, error)
	Begin(ctx context.Context, job *model.ProcessingJob) (bool, error)
	Progress(ctx context.Context, job *model.ProcessingJob, percent int) error
	Finish(ctx context.Context, job *model.ProcessingJob, runErr error) error
	Stale(ctx context.Context, cutoff time.Time, limit int) ([]model.ProcessingJob, error)
}

type jobService struct {
	jobs          repository.JobRepository
	claims        repository.ClaimRepository
	users         repository.UserRepository
	txManager     repository.TransactionManager
	applier       stepApplier
	audit         *AuditRecorder
	notifications NotificationService
	publisher     Publisher
	logger        *zap.Logger
	now           func() time.Time
}

func NewJobService(
	jobs repository.JobRepository,
	claims repository.ClaimRepository,
	periods repository.PeriodRepository,
	users repository.UserRepository,
	txManager repository.TransactionManager,
	audit *AuditRecorder,
	notifications NotificationService,
	publisher Publisher,
	logger *zap.Logger,
) JobService {
	if publisher == nil {
		publisher = NopPublisher
	}
	return &jobService{
		jobs:          jobs,
		claims:        claims,
		users:         users,
		txManager:     txManager,
		applier:       stepApplier{claims: claims, periods: periods},
		audit:         audit,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *jobService) Enqueue(ctx context.Context, actor *model.TaxEngineUser, claim *model.ClaimPack, kind string) (*model.ProcessingJob, error) {
	active, err := s.jobs.HasActive(ctx, claim.ID, kind)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, conflict("A %s job is already queued or running for this claim", kind)
	}

	job := &model.ProcessingJob{
		ClaimPackID:   claim.ID,
		ClaimPackUUID: claim.UUID,
		Kind:          kind,
		Status:        model.JobQueued,
	}
	_, job.RequestedBy = actorRefs(actor)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionStartJob,
		Detail:   fmt.Sprintf("Queued %s job", kind),
		Category: model.AuditClaim,
		Actor:    actor,
		Claim:    claim,
	})
	return job, nil
}

// StartJob queues a job for the claim's current step, e.g. to retry a failed run
func (s *jobService) StartJob(ctx context.Context, actor *model.TaxEngineUser, claimID, kind string) (*model.ProcessingJob, error) {
	step, ok := workflow.StepForJob(kind)
	if !ok {
		return nil, validationError("unknown job kind %q", kind)
	}

	uid, err := parseUUID("uuid", claimID)
	if err != nil {
		return nil, err
	}
	claim, err := s.claims.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("Claim pack", err)
	}
	if claim.WorkflowStep != step.Key {
		return nil, conflict("%s jobs run at the %s step; claim is at %s", kind, step.Key, claim.WorkflowStep)
	}
	return s.Enqueue(ctx, actor, claim, kind)
}

func (s *jobService) GetJob(ctx context.Context, id string) (*model.ProcessingJob, error) {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("Job", err)
	}
	return job, nil
}

func (s *jobService) Pending(ctx context.Context, limit int) ([]model.ProcessingJob, error) {
	return s.jobs.ListQueued(ctx, limit)
}

// Stale lists running jobs that have not reported since cutoff
func (s *jobService) Stale(ctx context.Context, cutoff time.Time, limit int) ([]model.ProcessingJob, error) {
	return s.jobs.ListStale(ctx, cutoff, limit)
}

func (s *jobService) Begin(ctx context.Context, job *model.ProcessingJob) (bool, error) {
	ok, err := s.jobs.Claim(ctx, job, s.now())
	if err != nil || !ok {
		return ok, err
	}
	s.publisher.Publish(job.RequestedBy, EventJobProgress, job)
	return true, nil
}

func (s *jobService) Progress(ctx context.Context, job *model.ProcessingJob, percent int) error {
	if percent < job.Progress {
		return nil
	}
	if percent > 99 {
		// 100 is only reported by Finish
		percent = 99
	}
	job.Progress = percent
	job.UpdatedAt = s.now()
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}
	s.publisher.Publish(job.RequestedBy, EventJobProgress, job)
	return nil
}

// Finish records the terminal state. On success the claim moves past the job's step.
func (s *jobService) Finish(ctx context.Context, job *model.ProcessingJob, runErr error) error {
	now := s.now()
	job.FinishedAt = &now
	job.UpdatedAt = now

	var claim *model.ClaimPack
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if runErr != nil {
			job.Status = model.JobFailed
			job.Error = runErr.Error()
			return s.jobs.Update(txCtx, job)
		}

		job.Status = model.JobSucceeded
		job.Progress = 100
		job.Error = ""
		if err := s.jobs.Update(txCtx, job); err != nil {
			return err
		}

		c, err := s.claims.GetByID(txCtx, job.ClaimPackID)
		if err != nil {
			return err
		}
		claim = c

		step, _ := workflow.StepForJob(job.Kind)
		next, ok := workflow.Next(step.Key)
		if !ok || c.WorkflowStep != step.Key {
			return nil
		}
		if err := workflow.CanAdvanceByJob(job.Kind, c.WorkflowStep, next.Key); err != nil {
			return err
		}
		return s.applier.apply(txCtx, c, next, now)
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(job.RequestedBy, EventJobProgress, job)
	if claim != nil {
		s.publisher.Publish(nil, EventClaimUpdated, claim)
	}

	detail := fmt.Sprintf("%s job %s", job.Kind, job.Status)
	if runErr != nil {
		detail += ": " + runErr.Error()
	}
	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionFinishJob,
		Detail:   detail,
		Category: model.AuditClaim,
		Claim:    claimRef(claim, job),
	})
	s.notifications.Notify(ctx, s.requester(ctx, job), jobTitle(job), detail, "/claims/"+job.ClaimPackUUID.String())
	return nil
}

func claimRef(claim *model.ClaimPack, job *model.ProcessingJob) *model.ClaimPack {
	if claim != nil {
		return claim
	}
	return &model.ClaimPack{ID: job.ClaimPackID, UUID: job.ClaimPackUUID}
}

func jobTitle(job *model.ProcessingJob) string {
	if job.Status == model.JobSucceeded {
		return "Processing complete"
	}
	return "Processing failed"
}

// requester resolves who queued the job. Unknown requesters get a broadcast.
func (s *jobService) requester(ctx context.Context, job *model.ProcessingJob) *model.TaxEngineUser {
	if job.RequestedBy == nil {
		return nil
	}
	user, err := s.users.GetByUUID(ctx, *job.RequestedBy)
	if err != nil {
		s.logger.Debug("job requester not found", zap.String("job", job.UUID.String()), zap.Error(err))
		return nil
	}
	return user
}
