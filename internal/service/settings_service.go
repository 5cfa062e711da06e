package service

import (
	"context"
	"strings"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type GatewayRequest struct {
	GatewayUserID  string `json:"gatewayUserId" binding:"required"`
	Password       string `json:"password" binding:"required"`
	AgentReference string `json:"agentReference"`
}

// GatewayStatus is the public view of the gateway credentials. The password hash never leaves the service.
type GatewayStatus struct {
	Configured bool                 `json:"configured"`
	Gateway    *model.GatewayConfig `json:"gateway"`
}

type BillingRequest struct {
	Plan         string           `json:"plan" binding:"omitempty,oneof=starter professional enterprise"`
	Seats        *int             `json:"seats" binding:"omitempty,min=1"`
	BillingEmail *string          `json:"billingEmail" binding:"omitempty,email|len=0"`
	MonthlyPrice *decimal.Decimal `json:"monthlyPrice"`
}

type SettingsService interface {
	GetGateway(ctx context.Context) (*GatewayStatus, error)
	SaveGateway(ctx context.Context, actor *model.TaxEngineUser, req GatewayRequest) (*GatewayStatus, error)
	DisconnectGateway(ctx context.Context, actor *model.TaxEngineUser) error
	GetBilling(ctx context.Context) (*model.BillingProfile, error)
	SaveBilling(ctx context.Context, actor *model.TaxEngineUser, req BillingRequest) (*model.BillingProfile, error)
}

type settingsService struct {
	repo  repository.SettingsRepository
	audit *AuditRecorder
	now   func() time.Time
	cost  int
}

func NewSettingsService(repo repository.SettingsRepository, audit *AuditRecorder) SettingsService {
	return &settingsService{repo: repo, audit: audit, now: time.Now, cost: bcrypt.DefaultCost}
}

func (s *settingsService) GetGateway(ctx context.Context) (*GatewayStatus, error) {
	gw, err := s.repo.GetGateway(ctx)
	if repository.IsNotFound(err) {
		return &GatewayStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &GatewayStatus{Configured: true, Gateway: gw}, nil
}

func (s *settingsService) SaveGateway(ctx context.Context, actor *model.TaxEngineUser, req GatewayRequest) (*GatewayStatus, error) {
	userID := strings.TrimSpace(req.GatewayUserID)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	gw, err := s.repo.GetGateway(ctx)
	if repository.IsNotFound(err) {
		gw, err = &model.GatewayConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	gw.GatewayUserID = userID
	gw.PasswordHash = string(hash)
	gw.AgentReference = strings.TrimSpace(req.AgentReference)
	gw.IsConnected = true
	gw.ConnectedAt = &now
	_, gw.ConnectedByUUID = actorRefs(actor)

	if err := s.repo.SaveGateway(ctx, gw); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionSaveGateway,
		Detail:   "Connected Government Gateway user " + userID,
		Category: model.AuditSettings,
		Actor:    actor,
	})
	return &GatewayStatus{Configured: true, Gateway: gw}, nil
}

func (s *settingsService) DisconnectGateway(ctx context.Context, actor *model.TaxEngineUser) error {
	if _, err := s.repo.GetGateway(ctx); err != nil {
		return lookupErr("Gateway configuration", err)
	}
	if err := s.repo.DeleteGateway(ctx); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionDisconnectGateway,
		Detail:   "Disconnected Government Gateway",
		Category: model.AuditSettings,
		Actor:    actor,
	})
	return nil
}

func defaultBilling() *model.BillingProfile {
	return &model.BillingProfile{Plan: "starter", Seats: 1, MonthlyPrice: decimal.Zero}
}

func (s *settingsService) GetBilling(ctx context.Context) (*model.BillingProfile, error) {
	profile, err := s.repo.GetBilling(ctx)
	if repository.IsNotFound(err) {
		return defaultBilling(), nil
	}
	return profile, err
}

func (s *settingsService) SaveBilling(ctx context.Context, actor *model.TaxEngineUser, req BillingRequest) (*model.BillingProfile, error) {
	profile, err := s.repo.GetBilling(ctx)
	if repository.IsNotFound(err) {
		profile, err = defaultBilling(), nil
	}
	if err != nil {
		return nil, err
	}

	if req.Plan != "" {
		profile.Plan = strings.ToLower(strings.TrimSpace(req.Plan))
	}
	if req.Seats != nil {
		profile.Seats = *req.Seats
	}
	if req.BillingEmail != nil {
		profile.BillingEmail = normalizeEmail(*req.BillingEmail)
	}
	if req.MonthlyPrice != nil {
		if req.MonthlyPrice.IsNegative() {
			return nil, validationError("monthlyPrice cannot be negative")
		}
		profile.MonthlyPrice = req.MonthlyPrice.Round(2)
	}

	if err := s.repo.SaveBilling(ctx, profile); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionSaveBilling,
		Detail:   "Updated billing: plan " + profile.Plan,
		Category: model.AuditSettings,
		Actor:    actor,
	})
	return profile, nil
}
