package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"taxengine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var referencePattern = regexp.MustCompile(`^TE-20260210-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{6}$`)

type submissionFixture struct {
	*claimFixture
	svc      *submissionService
	subs     *fakeSubmissionRepo
	settings *fakeSettingsRepo
	claim    *model.ClaimPack
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	cf := newClaimFixture(t)
	f := &submissionFixture{
		claimFixture: cf,
		subs:         &fakeSubmissionRepo{},
		settings:     &fakeSettingsRepo{},
	}
	notifications := NewNotificationService(cf.notes, cf.pub, zap.NewNop())
	f.svc = NewSubmissionService(f.subs, cf.claims, cf.periods, f.settings, &fakeTx{},
		newTestRecorder(cf.audit), notifications, zap.NewNop()).(*submissionService)
	f.svc.now = fixedClock

	f.claim = cf.createClaim(t)
	cf.walk(t, f.claim)
	return f
}

func (f *submissionFixture) connectGateway(t *testing.T, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	f.settings.gateway = &model.GatewayConfig{ID: 1, GatewayUserID: "GW123", PasswordHash: string(hash), IsConnected: true}
}

func (f *submissionFixture) create(t *testing.T) *model.Submission {
	t.Helper()
	sub, err := f.svc.CreateSubmission(context.Background(), testAdmin(), CreateSubmissionRequest{ClaimPackUUID: f.claim.UUID.String()})
	require.NoError(t, err)
	return sub
}

func TestNewReference_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref, err := NewReference(testNow)
		require.NoError(t, err)
		assert.Regexp(t, referencePattern, ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestCreateSubmission(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.create(t)

	assert.Equal(t, model.SubmissionDraft, sub.Status)
	assert.Regexp(t, referencePattern, sub.Reference)
	assert.Equal(t, f.claim.UUID, sub.ClaimPackUUID)
	assert.Equal(t, f.client.UUID, sub.ClientCompanyUUID)

	_, err := f.svc.CreateSubmission(context.Background(), nil, CreateSubmissionRequest{ClaimPackUUID: f.claim.UUID.String()})
	assert.True(t, errors.Is(err, ErrConflict), "open submission already exists")
}

func TestCreateSubmission_ClaimNotReady(t *testing.T) {
	cf := newClaimFixture(t)
	claim := cf.createClaim(t)
	svc := NewSubmissionService(&fakeSubmissionRepo{}, cf.claims, cf.periods, &fakeSettingsRepo{}, &fakeTx{},
		newTestRecorder(cf.audit), NewNotificationService(cf.notes, cf.pub, zap.NewNop()), zap.NewNop())

	_, err := svc.CreateSubmission(context.Background(), nil, CreateSubmissionRequest{ClaimPackUUID: claim.UUID.String()})
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = svc.CreateSubmission(context.Background(), nil, CreateSubmissionRequest{})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSubmit_GatewayChecks(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.create(t)
	ctx := context.Background()
	id := sub.UUID.String()

	_, err := f.svc.Submit(ctx, nil, id, SubmitRequest{GatewayPassword: "secret"})
	assert.True(t, errors.Is(err, ErrConflict), "gateway not connected")

	f.connectGateway(t, "secret")
	_, err = f.svc.Submit(ctx, nil, id, SubmitRequest{GatewayPassword: "wrong"})
	assert.True(t, errors.Is(err, ErrForbidden))

	done, err := f.svc.Submit(ctx, testAdmin(), id, SubmitRequest{GatewayPassword: "secret"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, done.Status)
	assert.NotEmpty(t, done.IRMark)
	require.NotNil(t, done.SubmittedAt)
	assert.Equal(t, testNow, *done.SubmittedAt)
	assert.Equal(t, model.PeriodSubmitted, f.periodStatus(t))

	_, err = f.svc.Submit(ctx, nil, id, SubmitRequest{GatewayPassword: "secret"})
	assert.True(t, errors.Is(err, ErrConflict), "already submitted")
}

func TestRecordOutcome(t *testing.T) {
	f := newSubmissionFixture(t)
	f.connectGateway(t, "secret")
	sub := f.create(t)
	ctx := context.Background()
	id := sub.UUID.String()

	_, err := f.svc.RecordOutcome(ctx, nil, id, SubmissionOutcomeRequest{Status: "accepted"})
	assert.True(t, errors.Is(err, ErrConflict), "draft cannot be decided")

	_, err = f.svc.Submit(ctx, nil, id, SubmitRequest{GatewayPassword: "secret"})
	require.NoError(t, err)

	notesBefore := len(f.notes.rows)
	decided, err := f.svc.RecordOutcome(ctx, nil, id, SubmissionOutcomeRequest{Status: "Accepted", ReceiptURL: " https://hmrc.example/receipt/1 "})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionAccepted, decided.Status)
	assert.Equal(t, "https://hmrc.example/receipt/1", decided.ReceiptURL)

	claim, err := f.claims.GetByUUID(ctx, f.claim.UUID)
	require.NoError(t, err)
	assert.NotNil(t, claim.SubmittedAt)
	assert.Equal(t, 100, claim.Progress)
	require.Len(t, f.notes.rows, notesBefore+1)
	assert.Nil(t, f.notes.rows[notesBefore].RecipientID)
}

func TestCreateSubmission_AfterRejection(t *testing.T) {
	f := newSubmissionFixture(t)
	f.connectGateway(t, "secret")
	sub := f.create(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, nil, sub.UUID.String(), SubmitRequest{GatewayPassword: "secret"})
	require.NoError(t, err)
	_, err = f.svc.RecordOutcome(ctx, nil, sub.UUID.String(), SubmissionOutcomeRequest{Status: "rejected"})
	require.NoError(t, err)

	retry := f.create(t)
	assert.NotEqual(t, sub.Reference, retry.Reference)

	list, err := f.svc.ListSubmissions(ctx, f.claim.UUID.String())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
