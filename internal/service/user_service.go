package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity is the verified subject of an auth provider token
type Identity struct {
	AuthUserID uuid.UUID
	Email      string
}

// CreateProfileRequest may repeat the token email but never replace it
type CreateProfileRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type InviteUserRequest struct {
	Email    string     `json:"email" binding:"required,email"`
	FullName string     `json:"fullName"`
	Role     model.Role `json:"role" binding:"omitempty,oneof=administrator claim_processor"`
}

type UpdateUserRequest struct {
	FullName *string     `json:"fullName"`
	Role     *model.Role `json:"role" binding:"omitempty,oneof=administrator claim_processor"`
	Status   *string     `json:"status" binding:"omitempty,oneof=active inactive"`
}

type UserService interface {
	ProfileFor(ctx context.Context, authUserID uuid.UUID) (*model.TaxEngineUser, error)
	CreateProfile(ctx context.Context, identity Identity, req CreateProfileRequest) (*model.TaxEngineUser, error)
	TrackLogin(ctx context.Context, user *model.TaxEngineUser) (*model.TaxEngineUser, error)
	ListUsers(ctx context.Context) ([]model.TaxEngineUser, error)
	InviteUser(ctx context.Context, actor *model.TaxEngineUser, req InviteUserRequest) (*model.TaxEngineUser, error)
	UpdateUser(ctx context.Context, actor *model.TaxEngineUser, id string, req UpdateUserRequest) (*model.TaxEngineUser, error)
}

type userService struct {
	repo          repository.UserRepository
	txManager     repository.TransactionManager
	audit         *AuditRecorder
	notifications NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

// NewUserService returns a new UserService instance
func NewUserService(repo repository.UserRepository, txManager repository.TransactionManager, audit *AuditRecorder, notifications NotificationService, logger *zap.Logger) UserService {
	return &userService{repo: repo, txManager: txManager, audit: audit, notifications: notifications, logger: logger, now: time.Now}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (s *userService) ProfileFor(ctx context.Context, authUserID uuid.UUID) (*model.TaxEngineUser, error) {
	user, err := s.repo.GetByAuthUserID(ctx, authUserID)
	if err != nil {
		return nil, lookupErr("Profile", err)
	}
	return user, nil
}

// CreateProfile links the token subject to a workspace profile. The first
// profile in the workspace becomes an administrator. A pending invitation is
// only claimed when the token itself carries the invited email.
func (s *userService) CreateProfile(ctx context.Context, identity Identity, req CreateProfileRequest) (*model.TaxEngineUser, error) {
	tokenEmail := normalizeEmail(identity.Email)
	email := tokenEmail
	if body := normalizeEmail(req.Email); body != "" {
		if tokenEmail != "" && body != tokenEmail {
			return nil, newError(ErrForbidden, "email does not match the signed-in account")
		}
		email = body
	}
	if email == "" {
		return nil, validationError("email is required")
	}
	fullName := strings.TrimSpace(req.FullName)

	if _, err := s.repo.GetByAuthUserID(ctx, identity.AuthUserID); err == nil {
		return nil, conflict("Profile already exists")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	var user *model.TaxEngineUser
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetByEmail(txCtx, email)
		switch {
		case err == nil && existing.Status == model.UserStatusPending && existing.AuthUserID == nil:
			if tokenEmail == "" {
				return newError(ErrForbidden, "Sign in with the invited email address to accept this invitation")
			}
			existing.AuthUserID = &identity.AuthUserID
			existing.Status = model.UserStatusActive
			existing.FullName = fullName
			user = existing
			return s.repo.Update(txCtx, existing)
		case err == nil:
			return conflict("A profile with email %s already exists", email)
		case !repository.IsNotFound(err):
			return err
		}

		count, err := s.repo.Count(txCtx)
		if err != nil {
			return err
		}
		role := model.RoleClaimProcessor
		if count == 0 {
			role = model.RoleAdministrator
		}
		authID := identity.AuthUserID
		user = &model.TaxEngineUser{
			AuthUserID: &authID,
			Email:      email,
			FullName:   fullName,
			Role:       role,
			Status:     model.UserStatusActive,
		}
		return s.repo.Create(txCtx, user)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflict("Profile already exists")
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionCreateProfile,
		Detail:   fmt.Sprintf("Created %s profile for %s", user.Role, user.Email),
		Category: model.AuditAuth,
		Actor:    user,
	})
	return user, nil
}

func (s *userService) TrackLogin(ctx context.Context, user *model.TaxEngineUser) (*model.TaxEngineUser, error) {
	now := s.now()
	user.LastLoginAt = &now
	user.LoginCount++
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionLogin,
		Detail:   user.Email + " signed in",
		Category: model.AuditAuth,
		Actor:    user,
	})
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.TaxEngineUser, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.TaxEngineUser{}
	}
	return users, nil
}

func (s *userService) InviteUser(ctx context.Context, actor *model.TaxEngineUser, req InviteUserRequest) (*model.TaxEngineUser, error) {
	email := normalizeEmail(req.Email)
	role := req.Role
	if role == "" {
		role = model.RoleClaimProcessor
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, conflict("A user with email %s already exists", email)
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	user := &model.TaxEngineUser{
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Role:     role,
		Status:   model.UserStatusPending,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflict("A user with email %s already exists", email)
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionInviteUser,
		Detail:   fmt.Sprintf("%s invited %s as %s", actorName(actor), email, role),
		Category: model.AuditSettings,
		Actor:    actor,
	})
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor *model.TaxEngineUser, id string, req UpdateUserRequest) (*model.TaxEngineUser, error) {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("User", err)
	}

	self := actor != nil && actor.ID == user.ID
	var changes []string

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
		changes = append(changes, "name")
	}
	if req.Role != nil && *req.Role != user.Role {
		if self {
			return nil, validationError("You cannot change your own role")
		}
		user.Role = *req.Role
		changes = append(changes, "role="+string(user.Role))
	}
	if req.Status != nil && *req.Status != user.Status {
		if self {
			return nil, validationError("You cannot change your own status")
		}
		if user.AuthUserID == nil && *req.Status == model.UserStatusActive {
			return nil, conflict("Invited users become active when they sign up")
		}
		user.Status = *req.Status
		changes = append(changes, "status="+user.Status)
	}

	user.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionUpdateUser,
		Detail:   fmt.Sprintf("Updated %s: %s", user.Email, strings.Join(changes, ", ")),
		Category: model.AuditSettings,
		Actor:    actor,
	})
	if len(changes) > 0 && user.AuthUserID != nil {
		s.notifications.Notify(ctx, user, "Your account was updated", strings.Join(changes, ", "), "/settings/profile")
	}
	return user, nil
}
