package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type claimFixture struct {
	claimSvc *claimService
	jobSvc   *jobService
	clients  *fakeClientRepo
	periods  *fakePeriodRepo
	claims   *fakeClaimRepo
	jobs     *fakeJobRepo
	users    *fakeUserRepo
	notes    *fakeNotificationRepo
	audit    *fakeAuditRepo
	pub      *fakePublisher

	client *model.ClientCompany
	period *model.AccountingPeriod
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	f := &claimFixture{
		clients: &fakeClientRepo{},
		periods: &fakePeriodRepo{},
		claims:  &fakeClaimRepo{},
		jobs:    &fakeJobRepo{},
		users:   &fakeUserRepo{},
		notes:   &fakeNotificationRepo{},
		audit:   &fakeAuditRepo{},
		pub:     &fakePublisher{},
	}
	recorder := newTestRecorder(f.audit)
	notifications := NewNotificationService(f.notes, f.pub, zap.NewNop())
	tx := &fakeTx{}

	f.jobSvc = NewJobService(f.jobs, f.claims, f.periods, f.users, tx, recorder, notifications, f.pub, zap.NewNop()).(*jobService)
	f.jobSvc.now = fixedClock
	f.claimSvc = NewClaimService(f.claims, f.clients, f.periods, f.jobSvc, tx, recorder, f.pub, zap.NewNop()).(*claimService)
	f.claimSvc.now = fixedClock

	ctx := context.Background()
	f.client = &model.ClientCompany{Name: "Acme", CompanyNumber: "01234567", IsActive: true}
	require.NoError(t, f.clients.Create(ctx, f.client))
	f.period = &model.AccountingPeriod{
		ClientCompanyID:   f.client.ID,
		ClientCompanyUUID: f.client.UUID,
		StartDate:         mustDate(t, "2025-01-01"),
		EndDate:           mustDate(t, "2025-12-31"),
		Status:            model.PeriodNotStarted,
	}
	require.NoError(t, f.periods.Create(ctx, f.period))
	return f
}

func (f *claimFixture) createClaim(t *testing.T) *model.ClaimPack {
	t.Helper()
	claim, err := f.claimSvc.CreateClaim(context.Background(), testAdmin(), CreateClaimRequest{
		ClientCompanyUUID:    f.client.UUID.String(),
		AccountingPeriodUUID: f.period.UUID.String(),
	})
	require.NoError(t, err)
	return claim
}

func (f *claimFixture) periodStatus(t *testing.T) model.PeriodStatus {
	t.Helper()
	p, err := f.periods.GetByUUID(context.Background(), f.period.UUID)
	require.NoError(t, err)
	return p.Status
}

func TestCreateClaim(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.createClaim(t)

	assert.Equal(t, workflow.StepScanCT600, claim.WorkflowStep)
	assert.Equal(t, model.StageUpload, claim.CurrentStage)
	assert.Equal(t, model.PeriodInProgress, f.periodStatus(t))
	assert.Equal(t, model.AuditClaim, f.audit.rows[0].Category)
	require.NotNil(t, f.audit.rows[0].ClaimPackUUID)
	assert.Equal(t, claim.UUID, *f.audit.rows[0].ClaimPackUUID)

	_, err := f.claimSvc.CreateClaim(context.Background(), nil, CreateClaimRequest{
		ClientCompanyUUID:    f.client.UUID.String(),
		AccountingPeriodUUID: f.period.UUID.String(),
	})
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestCreateClaim_PeriodOfAnotherClient(t *testing.T) {
	f := newClaimFixture(t)
	other := &model.ClientCompany{Name: "Other", CompanyNumber: "07654321", IsActive: true}
	require.NoError(t, f.clients.Create(context.Background(), other))

	_, err := f.claimSvc.CreateClaim(context.Background(), nil, CreateClaimRequest{
		ClientCompanyUUID:    other.UUID.String(),
		AccountingPeriodUUID: f.period.UUID.String(),
	})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestAdvanceWorkflow_RefusesSkipsAndJobSteps(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.createClaim(t)
	ctx := context.Background()
	id := claim.UUID.String()

	_, err := f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepReviewInfo)
	assert.True(t, errors.Is(err, ErrConflict), "skipping a step")

	_, err = f.claimSvc.AdvanceWorkflow(ctx, nil, id, "nowhere")
	assert.True(t, errors.Is(err, ErrValidation))

	view, err := f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepExtracting)
	require.NoError(t, err)
	assert.Equal(t, workflow.StepExtracting, view.Claim.WorkflowStep)
	assert.Equal(t, model.StageScanExtract, view.Claim.CurrentStage)
	assert.NotNil(t, view.Claim.UploadCompletedAt)
	require.Len(t, f.jobs.rows, 1)
	assert.Equal(t, model.JobCT600Extraction, f.jobs.rows[0].Kind)
	assert.Equal(t, model.JobQueued, f.jobs.rows[0].Status)

	// extracting is left only by its job
	_, err = f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepReviewInfo)
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepScanCT600)
	assert.True(t, errors.Is(err, ErrConflict), "moving backwards")
}

func TestJobLifecycle_AdvancesWorkflow(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.createClaim(t)
	ctx := context.Background()

	_, err := f.claimSvc.AdvanceWorkflow(ctx, nil, claim.UUID.String(), workflow.StepExtracting)
	require.NoError(t, err)

	pending, err := f.jobSvc.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	job := pending[0]

	ok, err := f.jobSvc.Begin(ctx, &job)
	require.NoError(t, err)
	require.True(t, ok)

	// a second worker loses the race
	again := f.jobs.rows[0]
	again.Status = model.JobQueued
	ok, err = f.jobSvc.Begin(ctx, &again)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.jobSvc.Progress(ctx, &job, 40))
	require.NoError(t, f.jobSvc.Progress(ctx, &job, 100))
	assert.Equal(t, 99, job.Progress)
	require.NoError(t, f.jobSvc.Finish(ctx, &job, nil))

	assert.Equal(t, model.JobSucceeded, f.jobs.rows[0].Status)
	assert.Equal(t, 100, f.jobs.rows[0].Progress)

	updated, err := f.claimSvc.GetClaim(ctx, claim.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, workflow.StepReviewInfo, updated.WorkflowStep)
	assert.Equal(t, model.StageBuildCT600, updated.CurrentStage)
	assert.NotNil(t, updated.ScanExtractCompletedAt)
	assert.Len(t, f.notes.rows, 1)
	assert.Equal(t, "Processing complete", f.notes.rows[0].Title)
}

func TestJobFailure_KeepsStepAndAllowsRetry(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.createClaim(t)
	ctx := context.Background()

	_, err := f.claimSvc.AdvanceWorkflow(ctx, nil, claim.UUID.String(), workflow.StepExtracting)
	require.NoError(t, err)

	// already queued
	_, err = f.jobSvc.StartJob(ctx, nil, claim.UUID.String(), model.JobCT600Extraction)
	assert.True(t, errors.Is(err, ErrConflict))

	job := f.jobs.rows[0]
	_, err = f.jobSvc.Begin(ctx, &job)
	require.NoError(t, err)
	require.NoError(t, f.jobSvc.Finish(ctx, &job, errors.New("unreadable scan")))

	assert.Equal(t, model.JobFailed, f.jobs.rows[0].Status)
	assert.Equal(t, "unreadable scan", f.jobs.rows[0].Error)

	current, err := f.claimSvc.GetClaim(ctx, claim.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, workflow.StepExtracting, current.WorkflowStep)

	retry, err := f.jobSvc.StartJob(ctx, nil, claim.UUID.String(), model.JobCT600Extraction)
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, retry.Status)

	_, err = f.jobSvc.StartJob(ctx, nil, claim.UUID.String(), model.JobHMRCValidation)
	assert.True(t, errors.Is(err, ErrConflict), "wrong step for the job kind")

	_, err = f.jobSvc.StartJob(ctx, nil, claim.UUID.String(), "OCR")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestStaleRunningJob_CanBeFailedAndRetried(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.createClaim(t)
	ctx := context.Background()

	_, err := f.claimSvc.AdvanceWorkflow(ctx, nil, claim.UUID.String(), workflow.StepExtracting)
	require.NoError(t, err)
	job := f.jobs.rows[0]
	_, err = f.jobSvc.Begin(ctx, &job)
	require.NoError(t, err)

	// a worker that dies here leaves the job running and blocks new ones
	_, err = f.jobSvc.StartJob(ctx, nil, claim.UUID.String(), model.JobCT600Extraction)
	assert.True(t, errors.Is(err, ErrConflict))

	fresh, err := f.jobSvc.Stale(ctx, testNow.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	stale, err := f.jobSvc.Stale(ctx, testNow.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, job.UUID, stale[0].UUID)

	require.NoError(t, f.jobSvc.Finish(ctx, &stale[0], errors.New("job stopped reporting")))
	assert.Equal(t, model.JobFailed, f.jobs.rows[0].Status)

	retry, err := f.jobSvc.StartJob(ctx, nil, claim.UUID.String(), model.JobCT600Extraction)
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, retry.Status)
}

// walk drives a claim to the submission step the way users and jobs would
func (f *claimFixture) walk(t *testing.T, claim *model.ClaimPack) {
	t.Helper()
	ctx := context.Background()
	id := claim.UUID.String()

	finishJob := func() {
		pending, err := f.jobSvc.Pending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		job := pending[0]
		_, err = f.jobSvc.Begin(ctx, &job)
		require.NoError(t, err)
		require.NoError(t, f.jobSvc.Finish(ctx, &job, nil))
	}

	_, err := f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepExtracting)
	require.NoError(t, err)
	finishJob()
	_, err = f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepAdjustments)
	require.NoError(t, err)
	_, err = f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepFinalReview)
	require.NoError(t, err)
	finishJob()
	_, err = f.claimSvc.AdvanceWorkflow(ctx, nil, id, workflow.StepSubmission)
	require.NoError(t, err)
}

func TestWorkflow_FullWalkPromotesPeriod(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.createClaim(t)
	f.walk(t, claim)

	view, err := f.claimSvc.GetWorkflow(context.Background(), claim.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, workflow.StepSubmission, view.Claim.WorkflowStep)
	assert.Equal(t, model.StageSubmit, view.Claim.CurrentStage)
	assert.Equal(t, 100, view.Claim.Progress)
	assert.Nil(t, view.Next)
	assert.Equal(t, model.PeriodIssued, f.periodStatus(t))
	for _, s := range view.Steps[:len(view.Steps)-1] {
		assert.Equal(t, workflow.StateComplete, s.State)
	}
}

func TestAddAdjustment_RecomputesClaimValue(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.createClaim(t)
	ctx := context.Background()

	_, _, err := f.claimSvc.AddAdjustment(ctx, nil, claim.UUID.String(), AdjustmentRequest{
		Category: "staff_costs", Description: "Developer salaries", Amount: decimal.RequireFromString("12500.50"),
	})
	require.NoError(t, err)
	_, updated, err := f.claimSvc.AddAdjustment(ctx, nil, claim.UUID.String(), AdjustmentRequest{
		Category: model.AdjustmentSoftware, Description: "Licences", Amount: decimal.RequireFromString("-500.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "12000.25", updated.ClaimValue.StringFixed(2))

	adjs, err := f.claimSvc.ListAdjustments(ctx, claim.UUID.String())
	require.NoError(t, err)
	assert.Len(t, adjs, 2)

	_, _, err = f.claimSvc.AddAdjustment(ctx, nil, claim.UUID.String(), AdjustmentRequest{Category: "OTHER", Description: "zero"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestListClaims_Filters(t *testing.T) {
	f := newClaimFixture(t)
	f.createClaim(t)

	all, err := f.claimSvc.ListClaims(context.Background(), f.client.UUID.String(), "upload")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := f.claimSvc.ListClaims(context.Background(), "", string(model.StageReview))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.claimSvc.ListClaims(context.Background(), "", "DONE")
	assert.True(t, errors.Is(err, ErrValidation))
}
