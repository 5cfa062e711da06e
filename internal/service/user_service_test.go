package service

import (
	"context"
	"errors"
	"testing"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUsers() (*userService, *fakeUserRepo, *fakeNotificationRepo) {
	repo, notes := &fakeUserRepo{}, &fakeNotificationRepo{}
	svc := NewUserService(repo, &fakeTx{}, newTestRecorder(&fakeAuditRepo{}),
		NewNotificationService(notes, &fakePublisher{}, zap.NewNop()), zap.NewNop()).(*userService)
	svc.now = fixedClock
	return svc, repo, notes
}

func TestCreateProfile_FirstUserIsAdministrator(t *testing.T) {
	svc, _, _ := newTestUsers()
	ctx := context.Background()

	first, err := svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New(), Email: "Owner@Example.com"}, CreateProfileRequest{FullName: "Owner"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdministrator, first.Role)
	assert.Equal(t, "owner@example.com", first.Email)
	assert.Equal(t, model.UserStatusActive, first.Status)

	second, err := svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New()}, CreateProfileRequest{FullName: "Second", Email: "second@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleClaimProcessor, second.Role)

	got, err := svc.ProfileFor(ctx, *second.AuthUserID)
	require.NoError(t, err)
	assert.Equal(t, second.UUID, got.UUID)

	_, err = svc.ProfileFor(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateProfile_Conflicts(t *testing.T) {
	svc, _, _ := newTestUsers()
	ctx := context.Background()
	id := Identity{AuthUserID: uuid.New()}

	_, err := svc.CreateProfile(ctx, id, CreateProfileRequest{FullName: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.CreateProfile(ctx, id, CreateProfileRequest{FullName: "A", Email: "other@example.com"})
	assert.True(t, errors.Is(err, ErrConflict), "same subject twice")

	_, err = svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New()}, CreateProfileRequest{FullName: "B", Email: "A@example.com"})
	assert.True(t, errors.Is(err, ErrConflict), "email taken by an active user")

	_, err = svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New()}, CreateProfileRequest{FullName: "C"})
	assert.True(t, errors.Is(err, ErrValidation), "no email anywhere")
}

func TestInviteThenSignUp_ClaimsInvitation(t *testing.T) {
	svc, repo, _ := newTestUsers()
	ctx := context.Background()
	admin := testAdmin()

	invited, err := svc.InviteUser(ctx, admin, InviteUserRequest{Email: "new@example.com", Role: model.RoleAdministrator})
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusPending, invited.Status)
	assert.Nil(t, invited.AuthUserID)

	_, err = svc.InviteUser(ctx, admin, InviteUserRequest{Email: "NEW@example.com"})
	assert.True(t, errors.Is(err, ErrConflict))

	auth := uuid.New()
	profile, err := svc.CreateProfile(ctx, Identity{AuthUserID: auth, Email: "new@example.com"}, CreateProfileRequest{FullName: "New Person"})
	require.NoError(t, err)
	assert.Equal(t, invited.UUID, profile.UUID)
	assert.Equal(t, model.RoleAdministrator, profile.Role)
	assert.Equal(t, model.UserStatusActive, profile.Status)
	assert.Len(t, repo.rows, 1)
}

func TestUpdateUser(t *testing.T) {
	svc, repo, notes := newTestUsers()
	ctx := context.Background()

	admin, err := svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New()}, CreateProfileRequest{FullName: "Admin", Email: "admin@example.com"})
	require.NoError(t, err)
	member, err := svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New()}, CreateProfileRequest{FullName: "Member", Email: "member@example.com"})
	require.NoError(t, err)
	pending, err := svc.InviteUser(ctx, admin, InviteUserRequest{Email: "pending@example.com"})
	require.NoError(t, err)

	role := model.RoleClaimProcessor
	_, err = svc.UpdateUser(ctx, admin, admin.UUID.String(), UpdateUserRequest{Role: &role})
	assert.True(t, errors.Is(err, ErrValidation), "own role")

	inactive := model.UserStatusInactive
	_, err = svc.UpdateUser(ctx, admin, admin.UUID.String(), UpdateUserRequest{Status: &inactive})
	assert.True(t, errors.Is(err, ErrValidation), "own status")

	active := model.UserStatusActive
	_, err = svc.UpdateUser(ctx, admin, pending.UUID.String(), UpdateUserRequest{Status: &active})
	assert.True(t, errors.Is(err, ErrConflict))

	promote := model.RoleAdministrator
	updated, err := svc.UpdateUser(ctx, admin, member.UUID.String(), UpdateUserRequest{Role: &promote, Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdministrator, updated.Role)
	assert.Equal(t, model.UserStatusInactive, updated.Status)
	stored, _ := repo.GetByUUID(ctx, member.UUID)
	assert.Equal(t, model.UserStatusInactive, stored.Status)

	require.Len(t, notes.rows, 1)
	require.NotNil(t, notes.rows[0].RecipientUUID)
	assert.Equal(t, member.UUID, *notes.rows[0].RecipientUUID)
}

func TestTrackLogin(t *testing.T) {
	svc, _, _ := newTestUsers()
	ctx := context.Background()
	user, err := svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New()}, CreateProfileRequest{FullName: "U", Email: "u@example.com"})
	require.NoError(t, err)

	user, err = svc.TrackLogin(ctx, user)
	require.NoError(t, err)
	user, err = svc.TrackLogin(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, user.LoginCount)
	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, testNow, *user.LastLoginAt)
}

func TestCreateProfile_InvitationNeedsTokenEmail(t *testing.T) {
	svc, repo, _ := newTestUsers()
	ctx := context.Background()

	invited, err := svc.InviteUser(ctx, testAdmin(), InviteUserRequest{Email: "newadmin@example.com", Role: model.RoleAdministrator})
	require.NoError(t, err)

	// body email cannot override the token
	_, err = svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New(), Email: "attacker@evil.test"},
		CreateProfileRequest{FullName: "Mallory", Email: "newadmin@example.com"})
	assert.True(t, errors.Is(err, ErrForbidden), "got %v", err)

	// a token without an email cannot claim the invitation through the body
	_, err = svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New()},
		CreateProfileRequest{FullName: "Mallory", Email: "newadmin@example.com"})
	assert.True(t, errors.Is(err, ErrForbidden), "got %v", err)

	stored, err := repo.GetByUUID(ctx, invited.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusPending, stored.Status)
	assert.Nil(t, stored.AuthUserID)

	// matching body and token email is fine
	profile, err := svc.CreateProfile(ctx, Identity{AuthUserID: uuid.New(), Email: "NewAdmin@example.com"},
		CreateProfileRequest{FullName: "New Admin", Email: "newadmin@example.com"})
	require.NoError(t, err)
	assert.Equal(t, invited.UUID, profile.UUID)
	assert.Equal(t, model.RoleAdministrator, profile.Role)
}
