package repository

import (
	"context"

	"taxengine/internal/model"

	"gorm.io/gorm"
)

// SettingsRepository stores the workspace singletons. Get* return
// gorm.ErrRecordNotFound until the first save.
type SettingsRepository interface {
	GetGateway(ctx context.Context) (*model.GatewayConfig, error)
	SaveGateway(ctx context.Context, cfg *model.GatewayConfig) error
	DeleteGateway(ctx context.Context) error
	GetBilling(ctx context.Context) (*model.BillingProfile, error)
	SaveBilling(ctx context.Context, profile *model.BillingProfile) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetGateway(ctx context.Context) (*model.GatewayConfig, error) {
	var cfg model.GatewayConfig
	if err := GetDB(ctx, r.db).Order("id asc").First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *settingsRepository) SaveGateway(ctx context.Context, cfg *model.GatewayConfig) error {
	return GetDB(ctx, r.db).Save(cfg).Error
}

func (r *settingsRepository) DeleteGateway(ctx context.Context) error {
	return GetDB(ctx, r.db).Where("1 = 1").Delete(&model.GatewayConfig{}).Error
}

func (r *settingsRepository) GetBilling(ctx context.Context) (*model.BillingProfile, error) {
	var profile model.BillingProfile
	if err := GetDB(ctx, r.db).Order("id asc").First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *settingsRepository) SaveBilling(ctx context.Context, profile *model.BillingProfile) error {
	return GetDB(ctx, r.db).Save(profile).Error
}
